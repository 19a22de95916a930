package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"event-checkout/internal/logger"
)

// Limiter decides whether a client may make another request. When it may not,
// the duration is how long until it can retry.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimiter is an in-process sliding window limiter keyed by client IP
type RateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter allows maxAttempts per client within window
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := rl.prune(rl.attempts[key], now)

	if len(valid) >= rl.maxAttempts {
		rl.attempts[key] = valid
		return false, valid[0].Add(rl.window).Sub(now), nil
	}

	rl.attempts[key] = append(valid, now)
	return true, 0, nil
}

func (rl *RateLimiter) prune(attempts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	var valid []time.Time
	for _, attempt := range attempts {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}
	return valid
}

// Cleanup removes idle clients every interval until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mutex.Lock()
			now := rl.now()
			for key, attempts := range rl.attempts {
				if valid := rl.prune(attempts, now); len(valid) == 0 {
					delete(rl.attempts, key)
				} else {
					rl.attempts[key] = valid
				}
			}
			rl.mutex.Unlock()
		}
	}
}

// tokenBucketScript refills capacity tokens every interval and takes one per call.
// It returns {allowed, tokens left, retry after ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
    tokens = capacity
    last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisRateLimiter is a token bucket shared by every server instance
type RedisRateLimiter struct {
	client   redis.Scripter
	capacity int
	interval time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisRateLimiter allows capacity requests per client every interval
func NewRedisRateLimiter(client redis.Scripter, capacity int, interval time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		capacity: capacity,
		interval: interval,
		prefix:   "checkout:ratelimit:",
		now:      time.Now,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl := int64((2*rl.interval + time.Second - 1) / time.Second)
	vals, err := tokenBucketScript.Run(ctx, rl.client, []string{rl.prefix + key},
		rl.now().UnixMilli(),
		rl.capacity,
		rl.interval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}
	return vals[0] == 1, time.Duration(vals[2]) * time.Millisecond, nil
}

// RateLimit rejects requests over the limiter's budget with 429. When the
// limiter itself fails the request is let through.
func RateLimit(l Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			allowed, retryAfter, err := l.Allow(r.Context(), ip)
			if err != nil {
				log.Warn("Rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				seconds := int((retryAfter + time.Second - 1) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				WriteError(w, http.StatusTooManyRequests, "RateLimited",
					fmt.Sprintf("too many checkout attempts, retry in %ds", seconds))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
