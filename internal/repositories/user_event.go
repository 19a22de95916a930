package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// UserEventRepository records user attendance against events
type UserEventRepository struct {
	db *sql.DB
}

// NewUserEventRepository creates a new user event repository
func NewUserEventRepository(db *sql.DB) *UserEventRepository {
	return &UserEventRepository{db: db}
}

// SetAttendance upserts the user's status for the event
func (r *UserEventRepository) SetAttendance(ctx context.Context, userID, eventID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_events (user_id, event_id, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, event_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		userID, eventID, status)
	if err != nil {
		return fmt.Errorf("failed to set attendance for user %s: %w", userID, err)
	}
	return nil
}

// GetAttendance returns the stored status, or "" when none is recorded
func (r *UserEventRepository) GetAttendance(ctx context.Context, userID, eventID string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT status FROM user_events WHERE user_id = $1 AND event_id = $2", userID, eventID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get attendance: %w", err)
	}
	return status, nil
}

// MemoryUserEventRepository keeps attendance in process memory
type MemoryUserEventRepository struct {
	mu       sync.RWMutex
	statuses map[string]string
}

// NewMemoryUserEventRepository creates an empty in-memory attendance store
func NewMemoryUserEventRepository() *MemoryUserEventRepository {
	return &MemoryUserEventRepository{statuses: make(map[string]string)}
}

func (r *MemoryUserEventRepository) SetAttendance(ctx context.Context, userID, eventID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[userID+"\x00"+eventID] = status
	return nil
}

func (r *MemoryUserEventRepository) GetAttendance(ctx context.Context, userID, eventID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statuses[userID+"\x00"+eventID], nil
}
