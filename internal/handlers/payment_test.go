package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/middleware"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

type checkoutReply struct {
	Success       bool          `json:"success"`
	Reference     string        `json:"reference"`
	DeliveryError string        `json:"delivery_error"`
	Replayed      bool          `json:"replayed"`
	Order         *models.Order `json:"order"`
}

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/checkout", checkoutBody(), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var reply checkoutReply
	decode(t, rr, &reply)
	assert.True(t, reply.Success)
	assert.Regexp(t, `^ORD-\d+-[a-z0-9]{8}$`, reply.Reference)
	assert.Empty(t, reply.DeliveryError)
	require.NotNil(t, reply.Order)
	assert.Equal(t, "315.00", reply.Order.Total.StringFixed(2))

	stored, err := env.orders.Get(context.Background(), reply.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, stored.Status)
	assert.Equal(t, 1, env.email.count())

	event, err := env.events.GetByID(context.Background(), "evt-jazz")
	require.NoError(t, err)
	assert.Equal(t, 2, event.AttendeeCount)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		status int
		code   models.ErrorKind
	}{
		{"amount mismatch", func(b map[string]interface{}) { b["amount"] = 210 }, http.StatusUnprocessableEntity, models.KindAmountMismatch},
		{"empty cart", func(b map[string]interface{}) {
			b["lines"] = []map[string]interface{}{{"tier_id": "standard", "unit_price": 150, "quantity": 0}}
		}, http.StatusBadRequest, models.KindEmptyCart},
		{"unknown event", func(b map[string]interface{}) { b["event_id"] = "evt-missing" }, http.StatusNotFound, models.KindEventNotFound},
		{"invalid email", func(b map[string]interface{}) {
			b["billing_details"] = map[string]string{"name": "Thandi", "email": "nope", "phone": "1"}
		}, http.StatusBadRequest, models.KindValidation},
		{"repeated tier", func(b map[string]interface{}) {
			b["lines"] = []map[string]interface{}{
				{"tier_id": "standard", "unit_price": 150, "quantity": 2},
				{"tier_id": "standard", "unit_price": 150, "quantity": 2},
			}
			b["amount"] = 630
		}, http.StatusBadRequest, models.KindValidation},
		{"over tier limit", func(b map[string]interface{}) {
			b["lines"] = []map[string]interface{}{{"tier_id": "vip", "unit_price": 300, "quantity": 50}}
			b["amount"] = 15750
		}, http.StatusBadRequest, models.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body := checkoutBody()
			tt.mutate(body)

			rr := env.do(t, "POST", "/api/checkout", body, nil, nil)
			assert.Equal(t, tt.status, rr.Code)

			var reply middleware.ErrorBody
			decode(t, rr, &reply)
			assert.False(t, reply.Success)
			assert.Equal(t, tt.code, reply.Code)
			assert.NotEmpty(t, reply.Error)

			orders, err := env.orders.ListByUser(context.Background(), "user-42")
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestCheckout_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/checkout", "{not json", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), string(models.KindValidation))
}

func TestCheckout_EmailFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.email.err = errors.New("smtp relay down")

	rr := env.do(t, "POST", "/api/checkout", checkoutBody(), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var reply checkoutReply
	decode(t, rr, &reply)
	assert.True(t, reply.Success)
	assert.Contains(t, reply.DeliveryError, "smtp relay down")

	stored, err := env.orders.Get(context.Background(), reply.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.EmailFailed, *stored.DeliveryStatus.Email)
}

func TestCheckout_IdempotencyKeyReplays(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{services.IdempotencyKeyHeader: "pay-once"}

	first := env.do(t, "POST", "/api/checkout", checkoutBody(), nil, headers)
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(t, "POST", "/api/checkout", checkoutBody(), nil, headers)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b checkoutReply
	decode(t, first, &a)
	decode(t, second, &b)
	assert.Equal(t, a.Reference, b.Reference)
	assert.True(t, b.Replayed)
	assert.Equal(t, 1, env.email.count())
}

// stubCheckouter returns a fixed error
type stubCheckouter struct{ err error }

func (s stubCheckouter) Process(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error) {
	return nil, s.err
}

func TestCheckout_StatusForEveryKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.ErrDuplicateRequest, http.StatusConflict},
		{models.ErrDelivery, http.StatusBadGateway},
		{models.NewError(models.KindInternal, "failed to save order", errors.New("pq: connection refused")), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		handler := NewCheckoutHandler(stubCheckouter{err: tt.err}, nil, nil)
		req := httptest.NewRequest("POST", "/api/checkout", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()

		handler.Checkout(rr, req)

		assert.Equal(t, tt.status, rr.Code, tt.err.Error())
		assert.NotContains(t, rr.Body.String(), "pq: connection refused")
	}
}
