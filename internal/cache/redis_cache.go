package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kasirinaja/backoffice/internal/domain"
)

type RedisListCache struct {
	client redis.UniversalClient
}

func NewRedisListCache(addr string, password string, db int) *RedisListCache {
	return NewRedisListCacheWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewRedisListCacheWithClient reuses a client owned by the caller.
func NewRedisListCacheWithClient(client redis.UniversalClient) *RedisListCache {
	return &RedisListCache{client: client}
}

func (c *RedisListCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisListCache) Close() error {
	return c.client.Close()
}

func (c *RedisListCache) Get(ctx context.Context, key string) (*domain.Page, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var page domain.Page
	if err := json.Unmarshal(val, &page); err != nil {
		return nil, false, err
	}
	return &page, true, nil
}

func (c *RedisListCache) Set(ctx context.Context, key string, value *domain.Page, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// Invalidate drops every cached page of one screen.
func (c *RedisListCache) Invalidate(ctx context.Context, screen string) (int, error) {
	var removed int
	iter := c.client.Scan(ctx, 0, keyPrefix+screen+":*", 200).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}
