// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package kv

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisConfig configures the networked store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the networked Store implementation, used when multiple
// nextread instances (e.g. several worktrees of the same project) need
// to share ranking state through a single Redis instance instead of each
// keeping its own embedded store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance described by cfg. It does
// not ping eagerly; the first call surfaces connection failures.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) ZUpsert(ctx context.Context, set, member string, score float64) error {
	return s.client.ZAdd(ctx, set, &redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZIncrBy(ctx context.Context, set, member string, delta float64) (float64, error) {
	return s.client.ZIncrBy(ctx, set, delta, member).Result()
}

func (s *RedisStore) ZScore(ctx context.Context, set, member string) (float64, error) {
	score, err := s.client.ZScore(ctx, set, member).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	return score, err
}

func (s *RedisStore) ZTop(ctx context.Context, set string, n int) ([]Member, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, set, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Member, len(zs))
	for i, z := range zs {
		out[i] = Member{Key: z.Member.(string), Score: z.Score}
	}
	return out, nil
}

func (s *RedisStore) ZCard(ctx context.Context, set string) (int, error) {
	n, err := s.client.ZCard(ctx, set).Result()
	return int(n), err
}

func (s *RedisStore) ZTrimToTop(ctx context.Context, set string, n int) error {
	return s.client.ZRemRangeByRank(ctx, set, 0, int64(-n-1)).Err()
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, set string, min, max float64) ([]Member, error) {
	zs, err := s.client.ZRangeByScoreWithScores(ctx, set, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Member, len(zs))
	for i, z := range zs {
		out[i] = Member{Key: z.Member.(string), Score: z.Score}
	}
	return out, nil
}

func (s *RedisStore) ZRem(ctx context.Context, set, member string) error {
	return s.client.ZRem(ctx, set, member).Err()
}

func (s *RedisStore) SAdd(ctx context.Context, set, member string) error {
	return s.client.SAdd(ctx, set, member).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, set string) ([]string, error) {
	return s.client.SMembers(ctx, set).Result()
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return s.client.HSet(ctx, key, values).Err()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HDel(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
