package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed-window counters between processes.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisLimiter(rdb redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:"}
}

// NewRedisClient connects to addr and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (Result, error) {
	k := l.prefix + key

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr %s: %w", k, err)
	}

	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ttl %s: %w", k, err)
	}
	// First hit of a window, or a key left without expiry.
	if count == 1 || ttl < 0 {
		if err := l.rdb.Expire(ctx, k, period).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = period
	}

	return Result{
		Allowed:   int(count) <= limit,
		Remaining: remaining(limit, int(count)),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
