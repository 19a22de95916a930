package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"event-checkout/internal/models"
)

// OrderRepository stores orders in Postgres as JSONB documents keyed by reference
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save upserts the order. A stored completed or failed order only accepts
// writes that keep its status; anything else is ErrInvalidStatusTransition.
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	document, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.Reference, err)
	}

	query := `
		INSERT INTO orders (reference, user_id, event_id, status, payment_date, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reference) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			event_id = EXCLUDED.event_id,
			status = EXCLUDED.status,
			payment_date = EXCLUDED.payment_date,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
		WHERE orders.status = 'pending' OR orders.status = EXCLUDED.status`

	result, err := r.db.ExecContext(ctx, query,
		order.Reference,
		order.UserID,
		order.EventID,
		order.Status,
		order.PaymentDate,
		document,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.Reference, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check saved order %s: %w", order.Reference, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: order %s is already final", models.ErrInvalidStatusTransition, order.Reference)
	}

	return nil
}

// Get retrieves an order by reference
func (r *OrderRepository) Get(ctx context.Context, reference string) (*models.Order, error) {
	var document []byte
	err := r.db.QueryRowContext(ctx, "SELECT document FROM orders WHERE reference = $1", reference).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", reference, err)
	}

	return decodeOrder(document)
}

// ListByUser returns a user's orders, most recent payment first
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document FROM orders
		WHERE user_id = $1
		ORDER BY payment_date DESC, reference DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order, err := decodeOrder(document)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func decodeOrder(document []byte) (*models.Order, error) {
	order := &models.Order{}
	if err := json.Unmarshal(document, order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return order, nil
}
