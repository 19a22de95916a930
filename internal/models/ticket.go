package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TicketTier represents a purchasable category of ticket for an event
type TicketTier struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Available   int             `json:"available" db:"available"`
	MaxPerOrder int             `json:"max_per_order" db:"max_per_order"`
}

// SelectedLine is a buyer's chosen quantity of a single tier
type SelectedLine struct {
	TierID    string          `json:"tier_id" validate:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
}

// RenderedTicket is one printable seat of an order. It is never persisted.
type RenderedTicket struct {
	TicketID  string          `json:"ticket_id"`
	TierID    string          `json:"tier_id"`
	TierName  string          `json:"tier_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SeatIndex int             `json:"seat_index"`
	QRPayload string          `json:"qr_payload"`
	HasCode   bool            `json:"has_code"`
}

// Validate validates the tier snapshot
func (t *TicketTier) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("tier id is required")
	}

	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tier %s: name is required", t.ID)
	}

	if t.UnitPrice.IsNegative() {
		return fmt.Errorf("tier %s: unit price cannot be negative", t.ID)
	}

	if t.Available < 0 {
		return fmt.Errorf("tier %s: available cannot be negative", t.ID)
	}

	if t.MaxPerOrder < 1 {
		return fmt.Errorf("tier %s: max per order must be at least 1", t.ID)
	}

	return nil
}

// Limit returns the most seats of this tier a single order may hold
func (t *TicketTier) Limit() int {
	if t.Available < t.MaxPerOrder {
		return t.Available
	}
	return t.MaxPerOrder
}

// Clamp forces a quantity into [0, Limit()]
func (t *TicketTier) Clamp(quantity int) int {
	if quantity < 0 {
		return 0
	}
	if limit := t.Limit(); quantity > limit {
		return limit
	}
	return quantity
}

// LineTotal returns unit price times quantity
func (l SelectedLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewTicketID builds the identifier printed on and encoded into a ticket
func NewTicketID(reference, tierID string, seatIndex int) string {
	return fmt.Sprintf("%s-%s-%d", reference, tierID, seatIndex)
}
