package models

import (
	"time"
)

// AttendanceStatus values recorded against a user and an event
const (
	AttendanceAttending = "attending"
)

// Event is the subset of an event record the checkout needs
type Event struct {
	ID            string       `json:"id" db:"id"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	StartDate     time.Time    `json:"start_date" db:"start_date"`
	Location      string       `json:"location" db:"location"`
	Venue         string       `json:"venue" db:"venue"`
	AttendeeCount int          `json:"attendee_count" db:"attendee_count"`
	Tiers         []TicketTier `json:"tiers"`
}

// EventSnapshot is the denormalized copy of event fields stored on an order
type EventSnapshot struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	Location  string    `json:"location"`
	Venue     string    `json:"venue,omitempty"`
}

// Snapshot copies the display fields of the event
func (e *Event) Snapshot() EventSnapshot {
	return EventSnapshot{
		ID:        e.ID,
		Title:     e.Title,
		StartDate: e.StartDate,
		Location:  e.Location,
		Venue:     e.Venue,
	}
}

// Tier finds a tier by id
func (e *Event) Tier(id string) (TicketTier, bool) {
	for _, t := range e.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return TicketTier{}, false
}

// Notification is a message raised for a user after a purchase
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	ActionURL string    `json:"action_url"`
	CreatedAt time.Time `json:"created_at"`
}
