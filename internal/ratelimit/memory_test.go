package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterBlocksPastLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, errAllow := limiter.Allow(context.Background(), "u:1", 3, time.Minute, now)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i)
		}
		if result.Remaining != 3-i-1 {
			t.Fatalf("expected remaining=%d, got %d", 3-i-1, result.Remaining)
		}
	}

	result, errAllow := limiter.Allow(context.Background(), "u:1", 3, time.Minute, now)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatalf("expected fourth request blocked")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", result.Remaining)
	}
}

func TestMemoryLimiterResetsOnNewWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if result, _ := limiter.Allow(context.Background(), "u:1", 1, time.Minute, now); !result.Allowed {
		t.Fatalf("expected first request allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "u:1", 1, time.Minute, now); result.Allowed {
		t.Fatalf("expected second request blocked")
	}

	next := now.Add(time.Minute)
	result, _ := limiter.Allow(context.Background(), "u:1", 1, time.Minute, next)
	if !result.Allowed {
		t.Fatalf("expected request allowed after window reset")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if result, _ := limiter.Allow(context.Background(), "u:1", 1, time.Minute, now); !result.Allowed {
		t.Fatalf("expected u:1 allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "u:2", 1, time.Minute, now); !result.Allowed {
		t.Fatalf("expected u:2 unaffected by u:1 usage")
	}
}

func TestMemoryLimiterZeroLimitAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	result, errAllow := limiter.Allow(context.Background(), "u:1", 0, time.Minute, now)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("expected zero limit to mean unlimited")
	}
}

func TestMemoryLimiterPeekDoesNotConsume(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		result, errPeek := limiter.Peek(context.Background(), "ip:1", 2, time.Minute, now)
		if errPeek != nil {
			t.Fatalf("peek %d: %v", i, errPeek)
		}
		if !result.Allowed || result.Remaining != 2 {
			t.Fatalf("expected peek %d to leave quota untouched, got %+v", i, result)
		}
	}

	for i := 0; i < 2; i++ {
		if result, _ := limiter.Allow(context.Background(), "ip:1", 2, time.Minute, now); !result.Allowed {
			t.Fatalf("expected request %d allowed", i)
		}
	}
	result, errPeek := limiter.Peek(context.Background(), "ip:1", 2, time.Minute, now)
	if errPeek != nil {
		t.Fatalf("peek: %v", errPeek)
	}
	if result.Allowed || result.Remaining != 0 {
		t.Fatalf("expected exhausted window visible to peek, got %+v", result)
	}

	next := now.Add(time.Minute)
	if result, _ := limiter.Peek(context.Background(), "ip:1", 2, time.Minute, next); !result.Allowed {
		t.Fatalf("expected new window visible to peek")
	}
}

func TestMemoryLimiterResetTimestamp(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC)

	result, _ := limiter.Allow(context.Background(), "u:1", 5, time.Minute, now)
	expected := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	if !result.Reset.Equal(expected) {
		t.Fatalf("expected reset=%s, got %s", expected, result.Reset)
	}
}
