package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"event-checkout/internal/models"
)

// MemoryOrderRepository keeps orders in process memory
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

// NewMemoryOrderRepository creates an empty in-memory order store
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*models.Order)}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.orders[order.Reference]; ok && !existing.CanReplace(order) {
		return fmt.Errorf("%w: order %s is already %s", models.ErrInvalidStatusTransition, order.Reference, existing.Status)
	}
	r.orders[order.Reference] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, reference string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[reference]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (r *MemoryOrderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	r.mu.RLock()
	orders := []*models.Order{}
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, order.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].PaymentDate.Equal(orders[j].PaymentDate) {
			return orders[i].Reference > orders[j].Reference
		}
		return orders[i].PaymentDate.After(orders[j].PaymentDate)
	})
	return orders, nil
}
