package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

// OrderHandler serves stored orders and their tickets
type OrderHandler struct {
	orders   services.OrderStore
	delivery services.TicketDeliverer
	logger   *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders services.OrderStore, delivery services.TicketDeliverer, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		delivery: delivery,
		logger:   logger.OrNop(log),
	}
}

type ordersResponse struct {
	Orders []*models.Order `json:"orders"`
	Count  int             `json:"count"`
}

type deliveryResponse struct {
	Success        bool                  `json:"success"`
	Error          string                `json:"error,omitempty"`
	DeliveryStatus models.DeliveryStatus `json:"delivery_status"`
}

// GetOrder handles GET /api/orders/{reference}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders handles GET /api/orders?user_id=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, h.logger, models.NewError(models.KindValidation, "user_id is required", nil))
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, models.NewError(models.KindInternal, "failed to list orders", err))
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders, Count: len(orders)})
}

// DownloadTickets handles POST /api/orders/{reference}/tickets/download
func (h *OrderHandler) DownloadTickets(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	doc, err := h.delivery.Deliver(r.Context(), order, services.ChannelDownload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.PDF); err != nil {
		h.logger.Warn("Failed to write ticket PDF", zap.String("reference", order.Reference), zap.Error(err))
	}
}

// EmailTickets handles POST /api/orders/{reference}/tickets/email
func (h *OrderHandler) EmailTickets(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	if _, err := h.delivery.Deliver(r.Context(), order, services.ChannelEmail); err != nil {
		h.logger.Warn("Ticket email request failed", zap.String("reference", order.Reference), zap.Error(err))
		writeJSON(w, statusForKind(models.KindOf(err)), deliveryResponse{
			Success:        false,
			Error:          err.Error(),
			DeliveryStatus: order.DeliveryStatus,
		})
		return
	}

	writeJSON(w, http.StatusOK, deliveryResponse{Success: true, DeliveryStatus: order.DeliveryStatus})
}

func (h *OrderHandler) load(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	reference := chi.URLParam(r, "reference")
	if !models.ValidReference(reference) {
		writeError(w, h.logger, models.NewError(models.KindOrderNotFound, "order "+reference+" not found", nil))
		return nil, false
	}

	order, err := h.orders.Get(r.Context(), reference)
	if err != nil {
		if models.KindOf(err) != models.KindOrderNotFound {
			err = models.NewError(models.KindInternal, "failed to load order", err)
		}
		writeError(w, h.logger, err)
		return nil, false
	}
	return order, true
}
