package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix Redis key 前缀
const DefaultKeyPrefix = "pointlist:workbook:"

// RedisStore 基于 Redis 的暂存，支持多实例部署
type RedisStore struct {
	c      *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(c *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{c: c, prefix: DefaultKeyPrefix, ttl: ttl}
}

func (r *RedisStore) key(sessionID string) string { return r.prefix + sessionID }

func (r *RedisStore) Put(ctx context.Context, sessionID string, data []byte) error {
	return r.c.Set(ctx, r.key(sessionID), data, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	val, err := r.c.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.c.Del(ctx, r.key(sessionID)).Err()
}
