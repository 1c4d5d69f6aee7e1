package kvstore

import (
	"context"
	"time"

	"lym-insights/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis is the production Store backed by a shared redis client.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (s *Redis) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	defer metrics.RecordKVOp("get", time.Since(start))

	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func (s *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	defer metrics.RecordKVOp("set", time.Since(start))

	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	start := time.Now()
	defer metrics.RecordKVOp("setnx", time.Since(start))

	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	start := time.Now()
	defer metrics.RecordKVOp("incr", time.Since(start))

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// Set expiration on first increment
	if count == 1 && ttl > 0 {
		s.rdb.Expire(ctx, key, ttl)
	}

	return count, nil
}

func (s *Redis) PushCapped(ctx context.Context, key, value string, cap int64) error {
	start := time.Now()
	defer metrics.RecordKVOp("push", time.Since(start))

	if err := s.rdb.LPush(ctx, key, value).Err(); err != nil {
		return err
	}
	return s.rdb.LTrim(ctx, key, 0, cap-1).Err()
}

func (s *Redis) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	began := time.Now()
	defer metrics.RecordKVOp("range", time.Since(began))

	vals, err := s.rdb.LRange(ctx, key, start, stop).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return vals, err
}
