package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const experimentWindow = 24 * time.Hour
const experimentKey = "promptlab:rl:experiments:daily"

// LimitResult is the outcome of a limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// ExperimentLimiter caps how many experiments run in a sliding 24h window.
// It is backed by a Redis sorted set; a nil client means no limiting, and
// Redis errors fail open so the limiter can never take the service down.
type ExperimentLimiter struct {
	rdb   *redis.Client
	limit int64
}

func NewExperimentLimiter(rdb *redis.Client, dailyLimit int) *ExperimentLimiter {
	return &ExperimentLimiter{rdb: rdb, limit: int64(dailyLimit)}
}

// slidingWindowScript atomically drops expired entries, counts the rest, and
// records the new request if under the limit.
// ARGV: window start (unix micro), now (unix micro), limit, key TTL seconds.
// Returns: [current_count, 1=allowed/0=denied]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

// Allow records one experiment attempt against the daily window.
func (l *ExperimentLimiter) Allow(ctx context.Context) LimitResult {
	if l.rdb == nil || l.limit <= 0 {
		return LimitResult{Allowed: true, Remaining: l.limit}
	}

	now := time.Now()
	windowStart := now.Add(-experimentWindow).UnixMicro()
	ttlSecs := int64(experimentWindow.Seconds()) + 1

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{experimentKey},
		windowStart, now.UnixMicro(), l.limit, ttlSecs,
	).Int64Slice()
	if err != nil || len(result) < 2 {
		// Fail open on Redis errors
		return LimitResult{Allowed: true, Remaining: l.limit}
	}

	count := result[0]
	allowed := result[1] == 1
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = experimentWindow / 2 // conservative estimate
	}

	return LimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}
