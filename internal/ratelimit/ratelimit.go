package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campus/internal/config"
	"github.com/smallbiznis/campus/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// tokenBucketScript refills and takes from a per-key bucket atomically.
// KEYS[1] bucket key; ARGV: rate per second, burst, now (unix micros).
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'updated')
local tokens = tonumber(bucket[1])
local updated = tonumber(bucket[2])
if tokens == nil then
  tokens = burst
  updated = now
end

local elapsed = math.max(0, now - updated) / 1000000.0
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'updated', now)
redis.call('PEXPIRE', key, math.ceil(burst / rate * 2000))
return allowed
`)

// Limiter is a redis-backed token bucket. A nil redis client disables it:
// Allow always answers true.
type Limiter struct {
	rdb   *redis.Client
	rate  float64
	burst int
}

// NewLimiter builds a limiter; rate is tokens per second.
func NewLimiter(rdb *redis.Client, rate float64, burst int) *Limiter {
	if rate <= 0 {
		rate = 20
	}
	if burst <= 0 {
		burst = int(rate) * 2
	}
	return &Limiter{rdb: rdb, rate: rate, burst: burst}
}

// Allow takes one token from the bucket for key. Redis failures fail open:
// dropping legitimate webhook deliveries costs more than letting a burst
// through.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.rdb == nil {
		return true
	}

	now := time.Now().UnixMicro()
	allowed, err := tokenBucketScript.Run(ctx, l.rdb,
		[]string{"ratelimit:" + key},
		l.rate, l.burst, now,
	).Int()
	if err != nil {
		logger.FromContext(ctx).Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	return allowed == 1
}

// Module provides the webhook ingest limiter.
var Module = fx.Module("ratelimit",
	fx.Provide(func(cfg config.Config, rdb *redis.Client) *Limiter {
		return NewLimiter(rdb, cfg.WebhookRateLimitPerSecond, cfg.WebhookRateLimitBurst)
	}),
)
