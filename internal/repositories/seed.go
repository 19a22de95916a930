package repositories

import (
	"time"

	"github.com/shopspring/decimal"

	"event-checkout/internal/models"
)

// SampleEvents returns the demo catalogue used by seed-events and by the
// server when it runs on in-memory stores. Dates are relative to now.
func SampleEvents(now time.Time) []*models.Event {
	day := now.UTC().Truncate(24 * time.Hour)

	return []*models.Event{
		{
			ID:          "evt-jazz-on-the-lawn",
			Title:       "Jazz on the Lawn",
			Description: "An evening of live jazz in the gardens.",
			StartDate:   day.AddDate(0, 0, 30).Add(18 * time.Hour),
			Location:    "Cape Town",
			Venue:       "Kirstenbosch Gardens",
			Tiers: []models.TicketTier{
				{ID: "standard", Name: "Standard", UnitPrice: decimal.NewFromInt(150), Available: 500, MaxPerOrder: 10},
				{ID: "vip", Name: "VIP", UnitPrice: decimal.NewFromInt(300), Available: 50, MaxPerOrder: 4},
			},
		},
		{
			ID:          "evt-tech-summit",
			Title:       "Joburg Tech Summit",
			Description: "Two days of talks on building software in Africa.",
			StartDate:   day.AddDate(0, 0, 45).Add(9 * time.Hour),
			Location:    "Johannesburg",
			Venue:       "Sandton Convention Centre",
			Tiers: []models.TicketTier{
				{ID: "early-bird", Name: "Early Bird", UnitPrice: decimal.RequireFromString("499.99"), Available: 100, MaxPerOrder: 2},
				{ID: "standard", Name: "Standard", UnitPrice: decimal.NewFromInt(799), Available: 400, MaxPerOrder: 5},
				{ID: "vip", Name: "VIP", UnitPrice: decimal.NewFromInt(1500), Available: 20, MaxPerOrder: 2},
			},
		},
	}
}
