package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Same fixed-window rules as MemoryLimiter, evaluated atomically in Redis.
// Returns {allowed, remaining, reset_at_ms}.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local count = tonumber(redis.call('HGET', key, 'count'))
local reset = tonumber(redis.call('HGET', key, 'reset_at'))

if count == nil or reset == nil or now > reset then
	reset = now + window
	redis.call('HSET', key, 'count', 1, 'reset_at', reset)
	redis.call('PEXPIRE', key, window * 2)
	return {1, limit - 1, reset}
end

if count >= limit then
	return {0, 0, reset}
end

count = redis.call('HINCRBY', key, 'count', 1)
return {1, limit - count, reset}
`)

// RedisLimiter shares counters between instances through Redis.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    Clock
}

func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, clock Clock) *RedisLimiter {
	limit, window = normalize(limit, window)
	if clock == nil {
		clock = time.Now
	}
	return &RedisLimiter{client: client, limit: limit, window: window, now: clock}
}

func (r *RedisLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	nowMs := r.now().UnixMilli()

	vals, err := fixedWindowScript.Run(ctx, r.client,
		[]string{keyPrefix + identifier},
		nowMs, r.window.Milliseconds(), r.limit,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit check failed: unexpected reply length %d", len(vals))
	}

	return Result{
		Allowed:   vals[0] == 1,
		Limit:     r.limit,
		Remaining: int(vals[1]),
		ResetAt:   time.UnixMilli(vals[2]),
	}, nil
}
