package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter implements a fixed-window rate limiter backed by Redis.
// Increment-and-check runs atomically in a Lua script so concurrent bursts
// cannot lose updates.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow checks whether the request should be allowed in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, window)
	reset := start.Add(window).UTC()
	// TTL one second past the window so late arrivals still see the counter.
	ttlSeconds := int64(window/time.Second) + 1

	redisKey := l.buildKey(key, start.UnixNano())
	res, errEval := redisIncrScript.Run(ctx, l.client, []string{redisKey}, ttlSeconds).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	count, ok := res.(int64)
	if !ok {
		switch v := res.(type) {
		case int:
			count = int64(v)
		case uint64:
			count = int64(v)
		default:
			return Result{}, errors.New("rate limit redis: unexpected response type")
		}
	}
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

// Peek reads the current window counter without incrementing it.
func (l *RedisLimiter) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, window)
	reset := start.Add(window).UTC()

	raw, errGet := l.client.Get(ctx, l.buildKey(key, start.UnixNano())).Result()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return Result{Allowed: true, Remaining: limit, Reset: reset}, nil
		}
		return Result{}, errGet
	}
	count, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return Result{}, errParse
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count < int64(limit), Remaining: remaining, Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, windowIndex int64) string {
	indexStr := strconv.FormatInt(windowIndex, 10)
	prefix := strings.TrimSpace(l.prefix)
	if prefix == "" {
		return key + ":" + indexStr
	}
	return prefix + ":" + key + ":" + indexStr
}
