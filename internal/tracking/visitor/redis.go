package visitor

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis key prefix. One prefix is one
// browser context; visitor identity keys live forever, which matches the
// localStorage lifetime the front-end relies on.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore namespaces all keys under the given prefix, typically the
// visitor id.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// RedisStores provides Redis-backed visitor contexts, one key prefix per
// visitor.
type RedisStores struct {
	client *redis.Client
}

func NewRedisStores(client *redis.Client) *RedisStores {
	return &RedisStores{client: client}
}

func (r *RedisStores) For(visitorID string) Store {
	return NewRedisStore(r.client, visitorID)
}

func (r *RedisStore) key(k string) string {
	return fmt.Sprintf("tracking:%s:%s", r.prefix, k)
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return n, nil
}
