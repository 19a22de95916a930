package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"event-checkout/internal/models"
)

// NotificationRepository persists in-app notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification, assigning an id when missing
func (r *NotificationRepository) Create(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, action_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.ActionURL, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, action_url, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.ActionURL, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MemoryNotificationRepository keeps notifications in process memory
type MemoryNotificationRepository struct {
	mu     sync.RWMutex
	byUser map[string][]models.Notification
}

// NewMemoryNotificationRepository creates an empty in-memory notification store
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{byUser: make(map[string][]models.Notification)}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append(r.byUser[n.UserID], n)
	return nil
}

func (r *MemoryNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	list := append([]models.Notification(nil), r.byUser[userID]...)
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
