package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks. Allow consumes quota;
// Peek reports the current window state without consuming any.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
	Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// windowStart truncates now to the current fixed window boundary.
func windowStart(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = time.Second
	}
	return now.Truncate(window)
}
