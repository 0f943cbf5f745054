package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// keyPrefix namespaces all flag keys in Redis, e.g. "flag:new-checkout".
const keyPrefix = "flag"

// RedisCache is the L2 layer. Flags are stored as JSON so the full
// targeting configuration round-trips intact.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client with flag serialization and TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisCache{client: client, ttl: ttl}
}

func flagKey(name string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, name)
}

// Get fetches and decodes a flag. A missing key is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, name string) (*flags.FeatureFlag, bool, error) {
	payload, err := c.client.Get(ctx, flagKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get flag %q from cache: %w", name, err)
	}

	var f flags.FeatureFlag
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached flag %q: %w", name, err)
	}
	return &f, true, nil
}

// Set encodes and stores a flag under the configured TTL.
func (c *RedisCache) Set(ctx context.Context, name string, flag *flags.FeatureFlag) error {
	payload, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("failed to encode flag %q: %w", name, err)
	}
	if err := c.client.Set(ctx, flagKey(name), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flag %q in cache: %w", name, err)
	}
	return nil
}

// Del removes a flag key, used on lifecycle mutations.
func (c *RedisCache) Del(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, flagKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete flag %q from cache: %w", name, err)
	}
	return nil
}

// HealthCheck pings the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close terminates the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
