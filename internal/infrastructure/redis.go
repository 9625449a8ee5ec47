package infrastructure

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

// RedisClient wraps the go-redis client shared by the cache and the tracker cursor.
type RedisClient struct {
	*redis.Client

	logger Logger
}

func NewRedisClient(cfg config.CacheConfig, logger Logger) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	return &RedisClient{
		Client: client,
		logger: logger.Component("redis"),
	}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}

	if err := c.Client.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to close redis client")

		return err
	}

	return nil
}
