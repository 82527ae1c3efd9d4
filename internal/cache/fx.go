package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/greenledger/internal/config"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewStore),
	fx.Provide(NewLocker),
	fx.Provide(func(store Store, cfg config.Config, metrics *obsmetrics.Metrics, log *zap.Logger) *ResponseCache {
		return NewResponseCache(store, cfg.Cache.TTL, metrics, log)
	}),
	fx.Invoke(func(holder *config.ScoringConfigHolder, rc *ResponseCache) {
		holder.OnReload(func() { rc.InvalidateAll(context.Background()) })
	}),
)

// NewRedisClient returns nil unless the redis driver is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) redis.UniversalClient {
	if strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)) != DriverRedis {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Cache.RedisAddr),
		Password: strings.TrimSpace(cfg.Cache.RedisPassword),
		DB:       cfg.Cache.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("redis cache unreachable", zap.Error(err))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return client
}

// NewStore selects the cache backend from config.
func NewStore(client redis.UniversalClient, cfg config.Config, log *zap.Logger) Store {
	if client != nil {
		log.Info("response cache backend", zap.String("driver", DriverRedis))
		return NewRedisStore(client, "greenledger:resp")
	}
	log.Info("response cache backend",
		zap.String("driver", DriverMemory),
		zap.Int("max_entries", cfg.Cache.MaxEntries),
	)
	return NewMemoryStore(cfg.Cache.MaxEntries)
}
