package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/kafka"
	"github.com/Astemirdum/equipment-lending/stats/internal/model"
)

const (
	reportKey     = "stats:report"
	generationKey = "stats:report:gen"
)

// redisClient is the part of *redis.Client the cache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// cachedRepository keeps the aggregated report in redis until the next event.
// Reports are stored per generation and every saved event bumps the
// generation, so a report computed before the event is never served after it.
// Cache failures are logged and fall through to postgres.
type cachedRepository struct {
	Repository
	rdb redisClient
	ttl time.Duration
	log *zap.Logger
}

func NewCachedRepository(repo Repository, rdb redisClient, ttl time.Duration, log *zap.Logger) Repository {
	return &cachedRepository{
		Repository: repo,
		rdb:        rdb,
		ttl:        ttl,
		log:        log.Named("cache"),
	}
}

func reportKeyFor(gen int64) string {
	return reportKey + ":" + strconv.FormatInt(gen, 10)
}

func (r *cachedRepository) GetStats(ctx context.Context) (model.StatsInfo, error) {
	gen, err := r.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.Warn("redis get generation", zap.Error(err))
		return r.Repository.GetStats(ctx)
	}
	key := reportKeyFor(gen)

	b, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var info model.StatsInfo
		if err := json.Unmarshal(b, &info); err == nil {
			return info, nil
		}
		r.log.Warn("corrupt cached report", zap.Error(err))
	case !errors.Is(err, redis.Nil):
		r.log.Warn("redis get", zap.Error(err))
	}

	info, err := r.Repository.GetStats(ctx)
	if err != nil {
		return model.StatsInfo{}, err
	}
	if b, err := json.Marshal(info); err == nil {
		if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
			r.log.Warn("redis set", zap.Error(err))
		}
	}
	return info, nil
}

func (r *cachedRepository) SaveEvent(ctx context.Context, event kafka.LifecycleEvent) error {
	if err := r.Repository.SaveEvent(ctx, event); err != nil {
		return err
	}
	if err := r.rdb.Incr(ctx, generationKey).Err(); err != nil {
		r.log.Warn("redis incr", zap.Error(err))
	}
	return nil
}
