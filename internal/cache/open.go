package cache

import (
	"fmt"
	"os"

	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/domain"
)

// Open returns the store selected by cfg.Driver.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return NopStore{}, nil
	case "memory":
		return NewMemoryStore(0), nil
	case "badger":
		if err := os.MkdirAll(cfg.BadgerDir, 0o755); err != nil {
			return nil, domain.StorageError("create cache directory", err)
		}
		s, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, domain.StorageError("open badger cache", err)
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, domain.StorageError("open redis cache", err)
		}
		return s, nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown cache driver %q", cfg.Driver), nil)
	}
}
