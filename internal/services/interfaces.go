package services

import (
	"context"

	"event-checkout/internal/models"
)

// OrderStore persists orders keyed by reference
type OrderStore interface {
	Save(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, reference string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
}

// EventStore resolves events and tracks attendee counts
type EventStore interface {
	// GetByID returns nil, nil when the event does not exist
	GetByID(ctx context.Context, eventID string) (*models.Event, error)
	IncrementAttendees(ctx context.Context, eventID string, delta int) error
}

// UserEventStore records a user's relationship to an event
type UserEventStore interface {
	SetAttendance(ctx context.Context, userID, eventID, status string) error
}

// NotificationService raises in-app notifications
type NotificationService interface {
	Create(ctx context.Context, notification models.Notification) error
}

// EmailService sends ticket emails
type EmailService interface {
	SendTickets(ctx context.Context, email TicketEmail) error
}

// TicketRenderer produces the printable ticket document of an order
type TicketRenderer interface {
	Render(ctx context.Context, order *models.Order) (*Document, error)
}

// TicketDeliverer hands rendered tickets to the buyer over a channel
type TicketDeliverer interface {
	Deliver(ctx context.Context, order *models.Order, channel DeliveryChannel) (*Document, error)
}

// QRGenerator encodes a payload as a PNG image
type QRGenerator interface {
	Generate(payload string) ([]byte, error)
}

// TicketEmail is a ticket email with the rendered PDF attached
type TicketEmail struct {
	Order          *models.Order
	RecipientEmail string
	RecipientName  string
	Attachment     Attachment
}

// Attachment is a file sent along with an email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
