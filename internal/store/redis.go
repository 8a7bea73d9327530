package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "manasmitra"

// RedisKV stores values as plain Redis strings under
// manasmitra:{profile}:{key}.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

// NewRedisKVFromURL parses a redis:// URL and connects.
func NewRedisKVFromURL(url string) (*RedisKV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisKV(redis.NewClient(opts)), nil
}

func redisKey(profileID, key string) string {
	return redisKeyPrefix + ":" + profileID + ":" + key
}

// Get returns nil, nil when the key does not exist.
func (r *RedisKV) Get(ctx context.Context, profileID, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, redisKey(profileID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Put sets the value with no expiry.
func (r *RedisKV) Put(ctx context.Context, profileID, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKey(profileID, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

var _ KV = (*RedisKV)(nil)
