package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

// Checkouter processes a checkout request
type Checkouter interface {
	Process(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error)
}

// CheckoutHandler handles payment submission
type CheckoutHandler struct {
	processor Checkouter
	carts     *CartHandler
	logger    *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler. When carts is set, a
// successful checkout empties the buyer's session cart for the event.
func NewCheckoutHandler(processor Checkouter, carts *CartHandler, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		processor: processor,
		carts:     carts,
		logger:    logger.OrNop(log),
	}
}

type checkoutResponse struct {
	Success       bool          `json:"success"`
	Reference     string        `json:"reference"`
	DeliveryError string        `json:"delivery_error,omitempty"`
	Replayed      bool          `json:"replayed,omitempty"`
	Order         *models.Order `json:"order,omitempty"`
}

// Checkout handles POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(services.IdempotencyKeyHeader))

	result, err := h.processor.Process(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.carts != nil && !result.Replayed {
		h.carts.forget(w, r, req.EventID)
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Success:       true,
		Reference:     result.Reference,
		DeliveryError: result.DeliveryError,
		Replayed:      result.Replayed,
		Order:         result.Order,
	})
}
