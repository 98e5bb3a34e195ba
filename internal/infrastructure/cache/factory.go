package cache

import (
	"io"
	"time"

	"cohortcast/internal/core/ports"
	"cohortcast/pkg/config"

	"go.uber.org/zap"
)

const redisKeyPrefix = "cohortcast:"

// Store is a cache that owns connections or goroutines.
type Store interface {
	ports.Cache
	io.Closer
}

// New returns a Redis-backed cache when Redis is enabled and reachable and
// falls back to process memory otherwise.
func New(cfg *config.Config, logger *zap.SugaredLogger) Store {
	if cfg.Redis.Enabled {
		client, err := NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password.Value(),
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err == nil {
			logger.Info("using Redis recordings cache")
			return NewRedisCache(client, redisKeyPrefix)
		}
		logger.Warnw("failed to connect to Redis, falling back to memory cache",
			"error", err,
		)
	}

	logger.Info("using memory recordings cache")
	return NewMemoryCache(defaultTTL(cfg))
}

func defaultTTL(cfg *config.Config) time.Duration {
	if cfg.Recordings.CacheTTL > 0 {
		return cfg.Recordings.CacheTTL
	}
	return 30 * time.Second
}
