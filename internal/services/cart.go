package services

import (
	"event-checkout/internal/models"
)

// CartBuilder holds a buyer's in-progress selection for one event.
// It is not safe for concurrent use; each request builds its own.
type CartBuilder struct {
	catalog *TicketCatalog
	lines   []models.SelectedLine
}

// NewCartBuilder starts with one zero-quantity line per tier
func NewCartBuilder(catalog *TicketCatalog) *CartBuilder {
	tiers := catalog.Tiers()
	lines := make([]models.SelectedLine, len(tiers))
	for i, tier := range tiers {
		lines[i] = models.SelectedLine{
			TierID:    tier.ID,
			Name:      tier.Name,
			UnitPrice: tier.UnitPrice,
		}
	}
	return &CartBuilder{catalog: catalog, lines: lines}
}

// SetQuantity adjusts a tier's quantity by delta, clamped to [0, tier.Limit()].
// An unknown tier id leaves the cart unchanged.
func (b *CartBuilder) SetQuantity(tierID string, delta int) []models.SelectedLine {
	tier, ok := b.catalog.Tier(tierID)
	if !ok {
		return b.Lines()
	}

	for i := range b.lines {
		if b.lines[i].TierID == tierID {
			b.lines[i].Quantity = adjust(tier, b.lines[i].Quantity, delta)
			break
		}
	}
	return b.Lines()
}

// adjust applies delta without overflowing int, saturating at both bounds
func adjust(tier models.TicketTier, current, delta int) int {
	current = tier.Clamp(current)
	switch limit := tier.Limit(); {
	case delta > limit-current:
		return limit
	case delta < -current:
		return 0
	default:
		return current + delta
	}
}

// Restore rebuilds the cart from stored quantities through the same clamping path
func (b *CartBuilder) Restore(quantities map[string]int) {
	for i := range b.lines {
		b.lines[i].Quantity = 0
	}
	for tierID, quantity := range quantities {
		b.SetQuantity(tierID, quantity)
	}
}

// Clear resets every quantity to zero
func (b *CartBuilder) Clear() {
	b.Restore(nil)
}

// Lines returns a copy of every line, including zero quantities
func (b *CartBuilder) Lines() []models.SelectedLine {
	return append([]models.SelectedLine(nil), b.lines...)
}

// Selected returns only lines with a positive quantity
func (b *CartBuilder) Selected() []models.SelectedLine {
	var selected []models.SelectedLine
	for _, line := range b.lines {
		if line.Quantity > 0 {
			selected = append(selected, line)
		}
	}
	return selected
}

// Quantities returns the non-zero quantities keyed by tier id, for session storage
func (b *CartBuilder) Quantities() map[string]int {
	q := make(map[string]int)
	for _, line := range b.lines {
		if line.Quantity > 0 {
			q[line.TierID] = line.Quantity
		}
	}
	return q
}

// GetTotals prices the given lines
func (b *CartBuilder) GetTotals(lines []models.SelectedLine) models.Totals {
	return models.CalculateTotals(lines)
}

// Checkout returns the selected lines, or ErrEmptyCart when nothing is selected
func (b *CartBuilder) Checkout() ([]models.SelectedLine, error) {
	selected := b.Selected()
	if len(selected) == 0 {
		return nil, models.ErrEmptyCart
	}
	return selected, nil
}
