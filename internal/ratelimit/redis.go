package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/pipeline"
)

// slidingWindowScript counts requests per identity in a sorted set.
// Returns [allowed (0/1), remaining, resetMillis].
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
    redis.call('PEXPIRE', key, window)
    return {1, limit - count - 1, now + window}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset = now + window
    if #oldest >= 2 then
        reset = tonumber(oldest[2]) + window
    end
    return {0, 0, reset}
end
`)

// Redis is a sliding-window limiter backed by a shared Redis counter
// store, for deployments where edge instances must agree on counts.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedis creates a Redis limiter. The window limit is the
// configured burst; the window length comes from ratelimit.window.
func NewRedis(cfg config.RateLimit) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		prefix: cfg.Redis.Prefix,
		limit:  cfg.Burst,
		window: cfg.Window,
	}
}

// Limit runs the sliding-window script for the identity. Store errors
// surface to the caller; resiliency and timeouts are Redis client
// configuration, not pipeline logic.
func (r *Redis) Limit(ctx context.Context, identity string) (pipeline.RateLimitResult, error) {
	now := time.Now().UnixMilli()
	vals, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.prefix + identity},
		now, r.window.Milliseconds(), r.limit,
	).Int64Slice()
	if err != nil {
		return pipeline.RateLimitResult{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(vals) != 3 {
		return pipeline.RateLimitResult{}, fmt.Errorf("redis rate limit: unexpected script result %v", vals)
	}
	return pipeline.RateLimitResult{
		Success:   vals[0] == 1,
		Limit:     r.limit,
		Remaining: int(vals[1]),
		Reset:     time.UnixMilli(vals[2]),
	}, nil
}

// Close releases the underlying Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
