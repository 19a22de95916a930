package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
)

func runIdempotencyContract(t *testing.T, store IdempotencyStore, key string) {
	ctx := context.Background()

	ref, err := store.Begin(ctx, key, "fp-a")
	require.NoError(t, err)
	assert.Empty(t, ref)

	_, err = store.Begin(ctx, key, "fp-a")
	assert.True(t, errors.Is(err, models.ErrDuplicateRequest))

	_, err = store.Begin(ctx, key, "fp-b")
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)

	require.NoError(t, store.Complete(ctx, key, "ORD-1-abcdefgh"))
	ref, err = store.Begin(ctx, key, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-abcdefgh", ref)

	_, err = store.Begin(ctx, key, "fp-b")
	assert.ErrorIs(t, err, ErrIdempotencyMismatch, "completed key keeps its fingerprint")

	other := key + "-released"
	_, err = store.Begin(ctx, other, "fp-a")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, other))
	ref, err = store.Begin(ctx, other, "fp-b")
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestMemoryIdempotencyStore(t *testing.T) {
	runIdempotencyContract(t, NewMemoryIdempotencyStore(time.Hour), "key-1")
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := store.Begin(ctx, "stuck", "fp")
	require.NoError(t, err)

	now = now.Add(DefaultProcessingTTL + time.Second)
	ref, err := store.Begin(ctx, "stuck", "fp")
	require.NoError(t, err, "abandoned processing key should be reclaimable")
	assert.Empty(t, ref)

	require.NoError(t, store.Complete(ctx, "stuck", "ORD-1-aaaaaaaa"))
	now = now.Add(2 * time.Hour)
	ref, err = store.Begin(ctx, "stuck", "fp")
	require.NoError(t, err)
	assert.Empty(t, ref, "completed key should expire after its ttl")
}

func TestRedisIdempotencyStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Failed to ping Redis: %v", err)
	}

	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		client.Del(context.Background(), idempotencyKeyPrefix+key, idempotencyKeyPrefix+key+"-released")
	})

	runIdempotencyContract(t, NewRedisIdempotencyStore(client, time.Minute), key)
}
