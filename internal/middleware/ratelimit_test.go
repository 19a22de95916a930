package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		allowed, _, err := rl.Allow(ctx, ip)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, retry, err := rl.Allow(ctx, ip)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	allowed, _, _ = rl.Allow(ctx, "192.168.1.2")
	assert.True(t, allowed, "different IP should be allowed")
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed, _, _ := rl.Allow(ctx, "ip")
	assert.True(t, allowed)
	allowed, retry, _ := rl.Allow(ctx, "ip")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retry)

	now = now.Add(61 * time.Second)
	allowed, _, _ = rl.Allow(ctx, "ip")
	assert.True(t, allowed)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, time.Millisecond)
	rl.Allow(context.Background(), "ip")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		rl.mutex.Lock()
		defer rl.mutex.Unlock()
		return len(rl.attempts) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	handler := RateLimit(rl, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/checkout", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
	}

	req := httptest.NewRequest("POST", "/api/checkout", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "RateLimited")
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return false, 0, errors.New("dial tcp: connection refused")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := RateLimit(brokenLimiter{}, zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/checkout", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Rate limiter unavailable", logs.All()[0].Message)
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Failed to ping Redis: %v", err)
	}

	rl := NewRedisRateLimiter(client, 2, time.Minute)
	rl.prefix = fmt.Sprintf("test:ratelimit:%d:", time.Now().UnixNano())
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	t.Cleanup(func() { client.Del(context.Background(), rl.prefix+"ip", rl.prefix+"other") })

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	now = now.Add(15 * time.Second)
	allowed, retry, err := rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 45*time.Second, retry)

	allowed, _, err = rl.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, allowed)

	now = now.Add(46 * time.Second)
	allowed, _, err = rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, allowed, "bucket refills after the interval")
}
