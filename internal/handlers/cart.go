package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

// CartSessionName is the cookie session holding buyer carts
const CartSessionName = "checkout-cart"

// CartHandler keeps a buyer's per-event ticket selection in a cookie session
type CartHandler struct {
	events services.EventStore
	store  sessions.Store
	logger *zap.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(events services.EventStore, store sessions.Store, log *zap.Logger) *CartHandler {
	return &CartHandler{
		events: events,
		store:  store,
		logger: logger.OrNop(log),
	}
}

type quantityRequest struct {
	TierID string `json:"tier_id"`
	Delta  int    `json:"delta"`
}

// ViewCart handles GET /api/events/{id}/cart
func (h *CartHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	cart, _, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartView(chi.URLParam(r, "id"), cart))
}

// UpdateQuantity handles POST /api/events/{id}/cart/quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.TierID) == "" {
		writeError(w, h.logger, models.NewError(models.KindValidation, "tier_id is required", nil))
		return
	}

	cart, session, ok := h.load(w, r)
	if !ok {
		return
	}

	cart.SetQuantity(req.TierID, req.Delta)
	if !h.save(w, r, session, chi.URLParam(r, "id"), cart) {
		return
	}
	writeJSON(w, http.StatusOK, cartView(chi.URLParam(r, "id"), cart))
}

// ClearCart handles POST /api/events/{id}/cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, session, ok := h.load(w, r)
	if !ok {
		return
	}

	cart.Clear()
	if !h.save(w, r, session, chi.URLParam(r, "id"), cart) {
		return
	}
	writeJSON(w, http.StatusOK, cartView(chi.URLParam(r, "id"), cart))
}

// load resolves the event, builds its catalog and restores the stored selection.
// It writes the error response itself and returns false on failure.
func (h *CartHandler) load(w http.ResponseWriter, r *http.Request) (*services.CartBuilder, *sessions.Session, bool) {
	eventID := chi.URLParam(r, "id")

	event, err := h.events.GetByID(r.Context(), eventID)
	if err != nil {
		writeError(w, h.logger, models.NewError(models.KindInternal, "failed to look up event", err))
		return nil, nil, false
	}
	if event == nil {
		writeError(w, h.logger, models.NewError(models.KindEventNotFound, "event "+eventID+" not found", nil))
		return nil, nil, false
	}

	catalog, err := services.CatalogForEvent(event)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, nil, false
	}
	cart := services.NewCartBuilder(catalog)

	// A cookie that no longer decodes starts a fresh session
	session, err := h.store.Get(r, CartSessionName)
	if err != nil {
		h.logger.Debug("Discarding unreadable cart session", zap.Error(err))
	}

	if snapshot, ok := getCartFromSession(session, eventID); ok {
		cart.Restore(snapshot.Quantities)
	}
	return cart, session, true
}

func (h *CartHandler) save(w http.ResponseWriter, r *http.Request, session *sessions.Session, eventID string, cart *services.CartBuilder) bool {
	quantities := cart.Quantities()
	if len(quantities) == 0 {
		delete(session.Values, cartKey(eventID))
	} else {
		saveCartToSession(session, models.CartSnapshot{EventID: eventID, Quantities: quantities})
	}

	if err := session.Save(r, w); err != nil {
		writeError(w, h.logger, models.NewError(models.KindInternal, "failed to save session", err))
		return false
	}
	return true
}

// forget drops the stored cart for eventID after a completed checkout
func (h *CartHandler) forget(w http.ResponseWriter, r *http.Request, eventID string) {
	session, err := h.store.Get(r, CartSessionName)
	if err != nil || session.IsNew {
		return
	}
	if _, ok := session.Values[cartKey(eventID)]; !ok {
		return
	}
	delete(session.Values, cartKey(eventID))
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("Failed to clear cart after checkout", zap.String("event_id", eventID), zap.Error(err))
	}
}

func cartView(eventID string, cart *services.CartBuilder) models.CartView {
	lines := cart.Lines()
	return models.CartView{
		EventID: eventID,
		Lines:   lines,
		Totals:  cart.GetTotals(lines),
	}
}

func cartKey(eventID string) string {
	return "cart:" + eventID
}

func getCartFromSession(session *sessions.Session, eventID string) (models.CartSnapshot, bool) {
	cartJSON, ok := session.Values[cartKey(eventID)].(string)
	if !ok {
		return models.CartSnapshot{}, false
	}

	var snapshot models.CartSnapshot
	if err := json.Unmarshal([]byte(cartJSON), &snapshot); err != nil {
		return models.CartSnapshot{}, false
	}
	return snapshot, true
}

func saveCartToSession(session *sessions.Session, snapshot models.CartSnapshot) {
	cartJSON, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	session.Values[cartKey(snapshot.EventID)] = string(cartJSON)
}
