package session

import (
	"context"

	"steelpos/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"session",
		fx.Provide(NewStore),
	)
}

// NewStore picks the backend named in the config. The redis client, when
// used, is closed on shutdown.
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) Store {
	logger = logger.Named("session")

	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
		logger.Debug("using redis session store", zap.String("addr", cfg.RedisAddr))
		return NewRedisStore(client, cfg.RedisPrefix)
	case config.SessionBackendMemory:
		logger.Debug("using in-memory session store")
		return NewMemoryStore()
	default:
		logger.Debug("using file session store", zap.String("path", cfg.SessionFile))
		return NewFileStore(cfg.SessionFile)
	}
}
