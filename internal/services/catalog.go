package services

import (
	"fmt"

	"event-checkout/internal/models"
)

// TicketCatalog is the fixed set of tiers offered for one event
type TicketCatalog struct {
	tiers []models.TicketTier
	index map[string]int
}

// NewTicketCatalog validates every tier and rejects duplicate ids
func NewTicketCatalog(tiers []models.TicketTier) (*TicketCatalog, error) {
	c := &TicketCatalog{
		tiers: make([]models.TicketTier, 0, len(tiers)),
		index: make(map[string]int, len(tiers)),
	}

	for _, tier := range tiers {
		if err := tier.Validate(); err != nil {
			return nil, models.NewError(models.KindValidation, "invalid ticket tier", err)
		}
		if _, dup := c.index[tier.ID]; dup {
			return nil, models.NewError(models.KindValidation, fmt.Sprintf("duplicate ticket tier %q", tier.ID), nil)
		}
		c.index[tier.ID] = len(c.tiers)
		c.tiers = append(c.tiers, tier)
	}

	return c, nil
}

// CatalogForEvent builds the catalog from the tiers an event publishes
func CatalogForEvent(event *models.Event) (*TicketCatalog, error) {
	return NewTicketCatalog(event.Tiers)
}

// Tier looks a tier up by id
func (c *TicketCatalog) Tier(id string) (models.TicketTier, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.TicketTier{}, false
	}
	return c.tiers[i], true
}

// Tiers returns the tiers in declaration order
func (c *TicketCatalog) Tiers() []models.TicketTier {
	return append([]models.TicketTier(nil), c.tiers...)
}

// Len returns the number of tiers
func (c *TicketCatalog) Len() int {
	return len(c.tiers)
}
