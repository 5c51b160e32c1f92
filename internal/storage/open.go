package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hammamikhairi/recipevoice/internal/config"
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Cache is a recipe cache the server owns and closes on shutdown.
type Cache interface {
	domain.RecipeCache
	Close() error
}

// Open builds the cache named by cfg.Backend. It returns nil, nil for
// config.CacheNone.
func Open(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		log.Info("cache: disabled")
		return nil, nil
	case config.CacheMemory, "":
		return NewMemoryCache(log), nil
	case config.CacheRedis:
		c, err := NewRedisCache(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "recipevoice:",
		}, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.CacheSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache dir: %w", err)
			}
		}
		c, err := NewSQLiteCache(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
