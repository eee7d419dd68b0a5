package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()
	key := Key("user1", "generate")

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, key, 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, key, 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, now.Add(time.Hour), res.ResetAt)

	// other keys are independent
	res, err = limiter.Allow(ctx, Key("user2", "generate"), 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(time.Hour)
	res, err = limiter.Allow(ctx, key, 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisLimiter(client)
	ctx := context.Background()
	key := Key("user1", "generate")

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, key, 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, key, 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	assert.Equal(t, time.Hour, mr.TTL("ratelimit:"+key))

	mr.FastForward(time.Hour)
	res, err = limiter.Allow(ctx, key, 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}
