package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 2 * time.Second

// RedisBackend is the durable backend. Every key is stored under prefix.
type RedisBackend struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, timeout: defaultRedisTimeout}
}

func (b *RedisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *RedisBackend) Get(key string) (string, bool, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	value, err := b.client.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *RedisBackend) Set(key string, value string) error {
	ctx, cancel := b.ctx()
	defer cancel()

	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(key string) error {
	ctx, cancel := b.ctx()
	defer cancel()

	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Keys() ([]string, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	var keys []string
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (b *RedisBackend) Clear() error {
	keys, err := b.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = b.prefix + k
	}

	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}
