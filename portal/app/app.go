package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/pkg/logger"
	"github.com/Astemirdum/equipment-lending/pkg/postgres"
	"github.com/Astemirdum/equipment-lending/portal/config"
	"github.com/Astemirdum/equipment-lending/portal/internal/handler"
	"github.com/Astemirdum/equipment-lending/portal/internal/repository"
	"github.com/Astemirdum/equipment-lending/portal/internal/server"
	"github.com/Astemirdum/equipment-lending/portal/internal/service"
	"github.com/Astemirdum/equipment-lending/portal/migrations"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "portal")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	var opts []service.Option
	if cfg.Kafka.Enabled() {
		if err := kafka.CreateTopics(cfg.Kafka); err != nil {
			log.Warn("kafka.CreateTopics", zap.Error(err))
		}
		producer, err := kafka.NewAsyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewAsyncProducer", zap.Error(err))
		}
		defer producer.Close()
		opts = append(opts, service.WithEventLog(service.NewEventLog(producer, kafka.LifecycleTopic, log)))
	} else {
		log.Info("kafka brokers not configured, lifecycle events disabled")
	}
	svc := service.NewService(repo, cfg.Auth, log, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.RunOverdueChecker(ctx, cfg.Overdue.Interval)

	h := handler.New(handler.Services{
		Equipment:    svc,
		Borrow:       svc,
		User:         svc,
		Notification: svc,
	}, cfg.Auth, log)
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
	db.Close()
	log.Info("Graceful shutdown finished")
}
