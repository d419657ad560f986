package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed cache with TTL, storing values as JSON.
// It satisfies the same Cache port as InMemory, for deployments that
// share rate/history lookups across replicas.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the given Redis URL ("host:port" or a full
// redis:// URL) and verifies the connection with a ping.
func NewRedis[T any](url, prefix string, ttl time.Duration) (*Redis[T], error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt, err = redis.ParseURL(fmt.Sprintf("redis://%s", url))
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis[T]{client: client, prefix: prefix, ttl: ttl}, nil
}

// Get retrieves a value. Returns false on miss, expiry or decode failure.
func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return zero, false
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return zero, false
	}
	return value, true
}

// Set stores a value with the configured TTL. Encode or network errors
// are swallowed; the cache is best-effort.
func (c *Redis[T]) Set(key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.client.SetEx(ctx, c.prefix+key, data, c.ttl)
}

// Delete removes a value.
func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.client.Del(ctx, c.prefix+key)
}

// Close releases the underlying connection pool.
func (c *Redis[T]) Close() error {
	return c.client.Close()
}
