package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache stores JSON payloads in Redis under a fixed key prefix. A nil
// cache or nil client degrades to a no-op so lookups still work without
// Redis, only slower.
type JSONCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New constructs a cache helper. The prefix namespaces keys per domain
// (e.g. "catalog", "outlet").
func New(client *redis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSONCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get unmarshals a cached payload into dst, reporting whether the key existed.
func (c *JSONCache) Get(ctx context.Context, k string, dst any) (bool, error) {
	if c == nil || c.client == nil || k == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set serialises v as JSON and stores it with the configured TTL.
func (c *JSONCache) Set(ctx context.Context, k string, v any) error {
	if c == nil || c.client == nil || k == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(k), data, c.ttl).Err()
}

// Invalidate removes a cached key. Missing keys are not an error.
func (c *JSONCache) Invalidate(ctx context.Context, k string) error {
	if c == nil || c.client == nil || k == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(k)).Err()
}
