package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
	"event-checkout/internal/repositories"
	"event-checkout/internal/services"
)

// recordingEmail captures ticket emails and can be told to fail
type recordingEmail struct {
	mu   sync.Mutex
	sent []services.TicketEmail
	err  error
}

func (e *recordingEmail) SendTickets(ctx context.Context, email services.TicketEmail) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, email)
	return nil
}

func (e *recordingEmail) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sent)
}

// brokenEvents fails every lookup
type brokenEvents struct{}

func (brokenEvents) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	return nil, errors.New("connection reset")
}

func (brokenEvents) IncrementAttendees(ctx context.Context, eventID string, delta int) error {
	return errors.New("connection reset")
}

type testEnv struct {
	router http.Handler
	orders *repositories.MemoryOrderRepository
	events *repositories.MemoryEventRepository
	email  *recordingEmail
}

func jazzEvent() *models.Event {
	return &models.Event{
		ID:        "evt-jazz",
		Title:     "Jazz on the Lawn",
		StartDate: time.Date(2025, 2, 14, 18, 0, 0, 0, time.UTC),
		Location:  "Cape Town",
		Venue:     "Kirstenbosch Gardens",
		Tiers: []models.TicketTier{
			{ID: "standard", Name: "Standard", UnitPrice: decimal.NewFromInt(150), Available: 100, MaxPerOrder: 6},
			{ID: "vip", Name: "VIP", UnitPrice: decimal.NewFromInt(300), Available: 3, MaxPerOrder: 4},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		orders: repositories.NewMemoryOrderRepository(),
		events: repositories.NewMemoryEventRepository(jazzEvent()),
		email:  &recordingEmail{},
	}

	delivery := services.NewDeliveryService(services.NewPDFService(nil, nil), env.email, env.orders, nil)
	processor := services.NewPaymentProcessor(services.PaymentProcessorDeps{
		Orders:      env.orders,
		Events:      env.events,
		Delivery:    delivery,
		Idempotency: services.NewMemoryIdempotencyStore(time.Hour),
	}, services.PaymentProcessorConfig{Currency: "ZAR", SideEffectTimeout: time.Second})

	store := sessions.NewCookieStore([]byte("handler-test-session-secret-0123"))
	carts := NewCartHandler(env.events, store, nil)

	env.router = newTestRouter(
		NewCheckoutHandler(processor, carts, nil),
		NewOrderHandler(env.orders, delivery, nil),
		carts,
	)
	return env
}

func newTestRouter(checkout *CheckoutHandler, orders *OrderHandler, carts *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/checkout", checkout.Checkout)
	r.Get("/api/orders", orders.ListOrders)
	r.Get("/api/orders/{reference}", orders.GetOrder)
	r.Post("/api/orders/{reference}/tickets/download", orders.DownloadTickets)
	r.Post("/api/orders/{reference}/tickets/email", orders.EmailTickets)
	r.Get("/api/events/{id}/cart", carts.ViewCart)
	r.Post("/api/events/{id}/cart/quantity", carts.UpdateQuantity)
	r.Post("/api/events/{id}/cart/clear", carts.ClearCart)
	return r
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"amount":         315,
		"currency":       "ZAR",
		"payment_method": "card",
		"event_id":       "evt-jazz",
		"event_title":    "Jazz on the Lawn",
		"lines": []map[string]interface{}{
			{"tier_id": "standard", "name": "Standard", "unit_price": 150, "quantity": 2},
		},
		"billing_details": map[string]string{
			"name":  "Thandi Mokoena",
			"email": "thandi@example.com",
			"phone": "+27821234567",
		},
		"user_id":         "user-42",
		"delivery_method": "both",
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
