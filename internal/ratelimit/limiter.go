package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one counted action
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Limiter counts actions per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Key builds the counter key for a user action
func Key(userID, action string) string {
	return userID + "_" + action
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps fixed-window counters in process memory. Counters
// are lost on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: map[string]window{}, now: time.Now}
}

// WithClock overrides the time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= period {
		w = window{start: now, count: 0}
	}
	w.count++
	l.windows[key] = w

	return Result{
		Allowed:   w.count <= limit,
		Remaining: remaining(limit, w.count),
		ResetAt:   w.start.Add(period),
	}, nil
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
