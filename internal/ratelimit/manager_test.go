package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/motivohq/motivo-server/internal/config"
)

func TestManagerFallsBackToMemoryWhenRedisDisabled(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := NewManager(func() config.RedisConfig {
		return config.RedisConfig{}
	}, func() time.Time {
		return now
	}, nil)

	if result, errAllow := manager.Allow(context.Background(), "u:1", 1, time.Minute); errAllow != nil || !result.Allowed {
		t.Fatalf("expected first request allowed, got result=%+v err=%v", result, errAllow)
	}
	if result, errAllow := manager.Allow(context.Background(), "u:1", 1, time.Minute); errAllow != nil || result.Allowed {
		t.Fatalf("expected second request blocked, got result=%+v err=%v", result, errAllow)
	}
}

func TestManagerFailsOpenOnRedisOutage(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Redis enabled but with no address: ensureRedis errors, the breaker
	// trips, and the memory limiter takes over without blocking traffic.
	manager := NewManager(func() config.RedisConfig {
		return config.RedisConfig{Enabled: true}
	}, func() time.Time {
		return now
	}, nil)

	result, errAllow := manager.Allow(context.Background(), "u:1", 5, time.Minute)
	if errAllow != nil {
		t.Fatalf("expected no error, got %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("expected request allowed despite redis outage")
	}
}

func TestManagerPeekFallsBackToMemory(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := NewManager(func() config.RedisConfig {
		return config.RedisConfig{}
	}, func() time.Time {
		return now
	}, nil)

	if result, errPeek := manager.Peek(context.Background(), "ip:1", 1, time.Minute); errPeek != nil || !result.Allowed {
		t.Fatalf("expected fresh window allowed, got result=%+v err=%v", result, errPeek)
	}
	if _, errAllow := manager.Allow(context.Background(), "ip:1", 1, time.Minute); errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	result, errPeek := manager.Peek(context.Background(), "ip:1", 1, time.Minute)
	if errPeek != nil {
		t.Fatalf("peek: %v", errPeek)
	}
	if result.Allowed {
		t.Fatalf("expected exhausted window visible to peek, got %+v", result)
	}
}

func TestManagerEmptyKeyAllows(t *testing.T) {
	manager := NewManager(nil, nil, nil)
	result, errAllow := manager.Allow(context.Background(), "", 1, time.Minute)
	if errAllow != nil {
		t.Fatalf("expected no error, got %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("expected empty key to bypass limiting")
	}
}
