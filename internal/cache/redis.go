// Package cache wraps the Redis client shared by the bearer auth cache and
// the audit stream.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client  *redis.Client
	authTTL time.Duration
}

// New connects to redisURL and verifies the connection with a PING.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 10
	}
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, authTTL: defaultAuthCacheTTL}
}

// WithAuthTTL overrides how long resolved bearer tokens stay cached.
func (c *Cache) WithAuthTTL(ttl time.Duration) *Cache {
	if ttl > 0 {
		c.authTTL = ttl
	}
	return c
}

// Ping is used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for the audit stream.
func (c *Cache) Client() *redis.Client {
	return c.client
}
