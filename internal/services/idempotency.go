package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"event-checkout/internal/models"
)

const (
	// IdempotencyKeyHeader carries the client supplied checkout key
	IdempotencyKeyHeader = "Idempotency-Key"
	// DefaultProcessingTTL bounds how long an unfinished checkout holds its key
	DefaultProcessingTTL = 60 * time.Second
	// DefaultIdempotencyTTL is how long a completed key keeps returning its order
	DefaultIdempotencyTTL = 24 * time.Hour

	idempotencyKeyPrefix = "checkout:idempotency:"
)

// IdempotencyStatus is the state of a claimed key
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord is what a claimed key maps to
type IdempotencyRecord struct {
	Status    IdempotencyStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ErrIdempotencyMismatch is returned when a key is reused for a different request
var ErrIdempotencyMismatch = models.NewError(models.KindValidation, "idempotency key was already used for a different request", nil)

// resolve decides what a second Begin on an existing record means
func (rec IdempotencyRecord) resolve(fingerprint string) (string, error) {
	if rec.Fingerprint != "" && fingerprint != "" && rec.Fingerprint != fingerprint {
		return "", ErrIdempotencyMismatch
	}
	if rec.Status == IdempotencyCompleted {
		return rec.Reference, nil
	}
	return "", models.ErrDuplicateRequest
}

// IdempotencyStore deduplicates checkout requests by client key.
//
// Begin claims key for the request identified by fingerprint and returns ""
// when the caller owns it. If the key already completed it returns the original
// order reference; if another request still holds it the error is
// ErrDuplicateRequest. A key seen with a different fingerprint fails with
// ErrIdempotencyMismatch.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, fingerprint string) (string, error)
	Complete(ctx context.Context, key, reference string) error
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps keys in process memory
type MemoryIdempotencyStore struct {
	mu            sync.Mutex
	records       map[string]memoryRecord
	ttl           time.Duration
	processingTTL time.Duration
	now           func() time.Time
}

type memoryRecord struct {
	IdempotencyRecord
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &MemoryIdempotencyStore{
		records:       make(map[string]memoryRecord),
		ttl:           ttl,
		processingTTL: DefaultProcessingTTL,
		now:           time.Now,
	}
}

func (s *MemoryIdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[key]; ok && now.Before(rec.expiresAt) {
		return rec.resolve(fingerprint)
	}

	s.records[key] = memoryRecord{
		IdempotencyRecord: IdempotencyRecord{Status: IdempotencyProcessing, Fingerprint: fingerprint, CreatedAt: now},
		expiresAt:         now.Add(s.processingTTL),
	}
	return "", nil
}

func (s *MemoryIdempotencyStore) Complete(ctx context.Context, key, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.records[key] = memoryRecord{
		IdempotencyRecord: IdempotencyRecord{
			Status:      IdempotencyCompleted,
			Reference:   reference,
			Fingerprint: s.records[key].Fingerprint,
			CreatedAt:   now,
		},
		expiresAt:         now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

// RedisClient is the subset of go-redis the idempotency store needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIdempotencyStore claims keys with SET NX so concurrent servers agree on the owner
type RedisIdempotencyStore struct {
	client        RedisClient
	ttl           time.Duration
	processingTTL time.Duration
}

// NewRedisIdempotencyStore creates a Redis backed store
func NewRedisIdempotencyStore(client RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{
		client:        client,
		ttl:           ttl,
		processingTTL: DefaultProcessingTTL,
	}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (string, error) {
	redisKey := idempotencyKeyPrefix + key

	data, err := json.Marshal(IdempotencyRecord{Status: IdempotencyProcessing, Fingerprint: fingerprint, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal idempotency record: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, redisKey, data, s.processingTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return "", nil
	}

	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the other request is gone but we did not win the claim
		return "", models.ErrDuplicateRequest
	}
	if err != nil {
		return "", fmt.Errorf("failed to read idempotency key: %w", err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return "", err
	}
	return rec.resolve(fingerprint)
}

func decodeRecord(raw []byte) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return rec, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, reference string) error {
	var fingerprint string
	if raw, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes(); err == nil {
		if rec, err := decodeRecord(raw); err == nil {
			fingerprint = rec.Fingerprint
		}
	}

	data, err := json.Marshal(IdempotencyRecord{Status: IdempotencyCompleted, Reference: reference, Fingerprint: fingerprint, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
