package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"event-checkout/internal/models"
)

// MockEventStore mocks EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventStore) IncrementAttendees(ctx context.Context, eventID string, delta int) error {
	args := m.Called(ctx, eventID, delta)
	return args.Error(0)
}

// MockUserEventStore mocks UserEventStore
type MockUserEventStore struct {
	mock.Mock
}

func (m *MockUserEventStore) SetAttendance(ctx context.Context, userID, eventID, status string) error {
	args := m.Called(ctx, userID, eventID, status)
	return args.Error(0)
}

// MockNotificationService mocks NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, notification models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockTicketEmailService mocks EmailService
type MockTicketEmailService struct {
	mock.Mock
}

func (m *MockTicketEmailService) SendTickets(ctx context.Context, email TicketEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// failingOrderStore rejects every write
type failingOrderStore struct{}

func (failingOrderStore) Save(ctx context.Context, order *models.Order) error {
	return errors.New("connection refused")
}

func (failingOrderStore) Get(ctx context.Context, reference string) (*models.Order, error) {
	return nil, models.ErrOrderNotFound
}

func (failingOrderStore) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return nil, errors.New("connection refused")
}

// qrFunc adapts a function to QRGenerator
type qrFunc func(payload string) ([]byte, error)

func (f qrFunc) Generate(payload string) ([]byte, error) {
	return f(payload)
}

func testTiers() []models.TicketTier {
	return []models.TicketTier{
		{ID: "standard", Name: "Standard", UnitPrice: decimal.NewFromInt(150), Available: 100, MaxPerOrder: 6},
		{ID: "vip", Name: "VIP", UnitPrice: decimal.NewFromInt(300), Available: 3, MaxPerOrder: 4},
	}
}

func testEvent() *models.Event {
	return &models.Event{
		ID:        "evt-jazz",
		Title:     "Jazz on the Lawn",
		StartDate: time.Date(2025, 2, 14, 18, 0, 0, 0, time.UTC),
		Location:  "Cape Town",
		Venue:     "Kirstenbosch Gardens",
		Tiers:     testTiers(),
	}
}

func testOrder(lines ...models.SelectedLine) *models.Order {
	paid := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	totals := models.CalculateTotals(lines)
	return &models.Order{
		Reference:      "ORD-1736501400000-k3x9q2ab",
		EventID:        "evt-jazz",
		Event:          testEvent().Snapshot(),
		UserID:         "user-42",
		Lines:          lines,
		Subtotal:       totals.Subtotal,
		ServiceFeeRate: models.ServiceFeeRate,
		ServiceFee:     totals.ServiceFee,
		Total:          totals.Total,
		Currency:       "ZAR",
		PaymentMethod:  models.PaymentCard,
		PaymentDate:    paid,
		Status:         models.OrderCompleted,
		DeliveryMethod: models.DeliveryBoth,
		DeliveryStatus: models.DeliveryBoth.InitialDeliveryStatus(),
		Billing:        models.BillingDetails{Name: "Thandi Mokoena", Email: "thandi@example.com", Phone: "+27821234567"},
		CreatedAt:      paid,
		UpdatedAt:      paid,
	}
}

func line(tierID, name string, price int64, qty int) models.SelectedLine {
	return models.SelectedLine{TierID: tierID, Name: name, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}
