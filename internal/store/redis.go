package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisBlob is the alternate backend for deployments that already run
// redis. SET replaces the whole value atomically, same contract as the
// sqlite backend.
type RedisBlob struct {
	Client *redis.Client
	Prefix string
}

func NewRedisBlob(addr string) *RedisBlob {
	return &RedisBlob{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Prefix: "cardstock:",
	}
}

func (r *RedisBlob) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return b, nil
}

func (r *RedisBlob) Put(ctx context.Context, key string, value []byte) error {
	if err := r.Client.Set(ctx, r.Prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisBlob) Delete(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, r.Prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (r *RedisBlob) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
