package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stm/internal/config"
)

// Open builds the backend named by cfg.Storage.Driver.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.DBPath)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Storage.RedisAddr, err)
		}
		return NewRedis(client, cfg.Storage.RedisPrefix), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
