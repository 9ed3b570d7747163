package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// defaultAuthCacheTTL bounds how long a revoked token may still pass.
	defaultAuthCacheTTL = 5 * time.Minute
)

// cachedAuthContext is the JSON shape stored in Redis.
type cachedAuthContext struct {
	TokenID     string `json:"token_id"`
	TokenPrefix string `json:"token_prefix"`
	UserID      string `json:"user_id"`
}

// GetAuthContext retrieves a cached auth context by cache key.
// A miss, or a corrupted entry, returns (nil, nil).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		TokenID:     cached.TokenID,
		TokenPrefix: cached.TokenPrefix,
		UserID:      cached.UserID,
	}, nil
}

// SetAuthContext caches an auth context.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	data, err := json.Marshal(cachedAuthContext{
		TokenID:     auth.TokenID,
		TokenPrefix: auth.TokenPrefix,
		UserID:      auth.UserID,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+cacheKey, data, c.authTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}
