package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/pkg/logger"
	"github.com/Astemirdum/equipment-lending/pkg/postgres"
	"github.com/Astemirdum/equipment-lending/stats/config"
	"github.com/Astemirdum/equipment-lending/stats/internal/handler"
	"github.com/Astemirdum/equipment-lending/stats/internal/repository"
	"github.com/Astemirdum/equipment-lending/stats/internal/server"
	"github.com/Astemirdum/equipment-lending/stats/internal/service"
	"github.com/Astemirdum/equipment-lending/stats/migrations"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "stats")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}
	var statsRepo repository.Repository = repo
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis ping, report cache may miss", zap.Error(err))
		}
		statsRepo = repository.NewCachedRepository(repo, rdb, cfg.Redis.TTL, log)
	}
	svc := service.NewService(statsRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Kafka.Enabled() {
		log.Fatal("KAFKA_ADDRS is required for the stats consumer")
	}
	if err := kafka.CreateTopics(cfg.Kafka); err != nil {
		log.Warn("kafka.CreateTopics", zap.Error(err))
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.StatsConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}
	handle := handler.NewConsumer(svc.SaveEvent, log)
	go kafka.Consume(ctx, consumer, handle, log, kafka.LifecycleTopic)
	go func() {
		select {
		case <-handle.Ready():
			log.Info("consumer group joined", zap.String("topic", kafka.LifecycleTopic))
		case <-ctx.Done():
		}
	}()

	h := handler.New(svc, cfg.Auth, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if err = consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
