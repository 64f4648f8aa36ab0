package delayqueue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "autoflow:delays"

// RedisQueue keeps the index in a sorted set scored by resume time in
// milliseconds, so several worker processes share one view of due work.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue on key; an empty key uses "autoflow:delays".
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultRedisKey
	}

	return &RedisQueue{client: client, key: key}
}

// NewRedisQueueFromURL parses a redis:// URL and connects.
func NewRedisQueueFromURL(ctx context.Context, url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisQueue(client, key), nil
}

func (q *RedisQueue) Schedule(ctx context.Context, executionID string, resumeAt time.Time) error {
	err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(resumeAt.UnixMilli()),
		Member: executionID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule execution %s: %w", executionID, err)
	}

	return nil
}

func (q *RedisQueue) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}

	if limit > 0 {
		opt.Count = int64(limit)
	}

	ids, err := q.client.ZRangeByScore(ctx, q.key, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due executions: %w", err)
	}

	return ids, nil
}

func (q *RedisQueue) Remove(ctx context.Context, executionID string) error {
	err := q.client.ZRem(ctx, q.key, executionID).Err()
	if err != nil {
		return fmt.Errorf("failed to remove execution %s: %w", executionID, err)
	}

	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
