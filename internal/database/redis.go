package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-membership/internal/config"
	"ms-membership/internal/logger"
)

// OpenRedis connects to Redis and checks the connection with a ping.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		return nil, err
	}
	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", cfg.Addr))
	return client, nil
}
