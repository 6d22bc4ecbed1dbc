// ABOUTME: Redis-backed Store driver for shared or kiosk deployments
// ABOUTME: Namespaces every key under a fixed prefix

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "fntc:"

// RedisStore implements Store on a Redis server
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the server at url (redis://host:port/db)
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get implements Store
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// Set implements Store
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, redisPrefix+key, value, 0).Err()
}

// Delete implements Store
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = redisPrefix + k
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Close implements Store
func (r *RedisStore) Close() error {
	return r.client.Close()
}
