// Package redis provides the Redis connection and the cross-instance block
// mirror built on it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// RedisConnection manages the Redis client lifecycle.
type RedisConnection struct {
	Client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a Redis client and verifies it with a ping.
func NewRedisConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	if cfg == nil || len(cfg.Addresses) == 0 {
		return nil, errors.ErrInvalidConfig.WithMessage("redis addresses are required")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrCache, err)
	}

	log.Info(ctx, "redis connection established",
		logger.Any("addresses", cfg.Addresses),
		logger.Int("db", cfg.DB),
	)

	return &RedisConnection{Client: client, logger: log}, nil
}

// HealthCheck verifies Redis is reachable.
func (c *RedisConnection) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close releases the client.
func (c *RedisConnection) Close() error {
	return c.Client.Close()
}
