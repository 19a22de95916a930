package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"event-checkout/internal/models"
)

// EventRepository reads events and their ticket tiers from Postgres
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID returns the event with its tiers, or nil when it does not exist
func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	event := &models.Event{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, location, venue, attendee_count
		FROM events WHERE id = $1`, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartDate,
		&event.Location,
		&event.Venue,
		&event.AttendeeCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, unit_price, available, max_per_order
		FROM ticket_tiers WHERE event_id = $1
		ORDER BY position, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket tiers for event %s: %w", eventID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier models.TicketTier
		if err := rows.Scan(&tier.ID, &tier.Name, &tier.UnitPrice, &tier.Available, &tier.MaxPerOrder); err != nil {
			return nil, fmt.Errorf("failed to scan ticket tier: %w", err)
		}
		event.Tiers = append(event.Tiers, tier)
	}

	return event, rows.Err()
}

// IncrementAttendees adds delta to the event's attendee count
func (r *EventRepository) IncrementAttendees(ctx context.Context, eventID string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE events SET attendee_count = attendee_count + $2, updated_at = NOW()
		WHERE id = $1`, eventID, delta)
	if err != nil {
		return fmt.Errorf("failed to increment attendees for event %s: %w", eventID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check attendee update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event %s not found", eventID)
	}
	return nil
}

// Upsert writes the event and replaces its tiers in one transaction
func (r *EventRepository) Upsert(ctx context.Context, event *models.Event) error {
	for i := range event.Tiers {
		if err := event.Tiers[i].Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, title, description, start_date, location, venue, attendee_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			start_date = EXCLUDED.start_date,
			location = EXCLUDED.location,
			venue = EXCLUDED.venue,
			updated_at = NOW()`,
		event.ID, event.Title, event.Description, event.StartDate, event.Location, event.Venue, event.AttendeeCount)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", event.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM ticket_tiers WHERE event_id = $1", event.ID); err != nil {
		return fmt.Errorf("failed to clear ticket tiers: %w", err)
	}

	for i, tier := range event.Tiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ticket_tiers (event_id, id, name, unit_price, available, max_per_order, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			event.ID, tier.ID, tier.Name, tier.UnitPrice, tier.Available, tier.MaxPerOrder, i)
		if err != nil {
			return fmt.Errorf("failed to insert ticket tier %s: %w", tier.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event %s: %w", event.ID, err)
	}
	return nil
}

// MemoryEventRepository is an in-process event store for development and tests
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*models.Event
}

// NewMemoryEventRepository creates a store holding events
func NewMemoryEventRepository(events ...*models.Event) *MemoryEventRepository {
	r := &MemoryEventRepository{events: make(map[string]*models.Event)}
	for _, e := range events {
		r.Upsert(context.Background(), e)
	}
	return r
}

func (r *MemoryEventRepository) Upsert(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *event
	c.Tiers = append([]models.TicketTier(nil), event.Tiers...)
	r.events[event.ID] = &c
	return nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, nil
	}
	c := *event
	c.Tiers = append([]models.TicketTier(nil), event.Tiers...)
	return &c, nil
}

func (r *MemoryEventRepository) IncrementAttendees(ctx context.Context, eventID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	event.AttendeeCount += delta
	return nil
}
