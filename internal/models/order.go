package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// PaymentMethod is how the buyer settles the order
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentEFT    PaymentMethod = "eft"
	PaymentMobile PaymentMethod = "mobile"
)

// DeliveryMethod is the buyer's choice of ticket delivery
type DeliveryMethod string

const (
	DeliveryEmail    DeliveryMethod = "email"
	DeliveryDownload DeliveryMethod = "download"
	DeliveryBoth     DeliveryMethod = "both"
)

// EmailDeliveryStatus tracks the email channel
type EmailDeliveryStatus string

const (
	EmailPending EmailDeliveryStatus = "pending"
	EmailSent    EmailDeliveryStatus = "sent"
	EmailFailed  EmailDeliveryStatus = "failed"
)

// DownloadStatus tracks the download channel
type DownloadStatus string

const (
	DownloadAvailable   DownloadStatus = "available"
	DownloadUnavailable DownloadStatus = "unavailable"
)

// GuestUserID identifies purchases made without an account
const GuestUserID = "guest"

// DeliveryStatus holds per-channel delivery state. Absent channels were not requested.
type DeliveryStatus struct {
	Email    *EmailDeliveryStatus `json:"email,omitempty"`
	Download *DownloadStatus      `json:"download,omitempty"`
}

// BillingDetails is the buyer contact information captured at checkout
type BillingDetails struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Address    string `json:"address,omitempty" validate:"max=255"`
	City       string `json:"city,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
}

// Order is the persisted record of a completed checkout
type Order struct {
	Reference      string          `json:"reference"`
	EventID        string          `json:"event_id"`
	Event          EventSnapshot   `json:"event"`
	UserID         string          `json:"user_id"`
	Lines          []SelectedLine  `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ServiceFeeRate decimal.Decimal `json:"service_fee_rate"`
	ServiceFee     decimal.Decimal `json:"service_fee"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	PaymentDate    time.Time       `json:"payment_date"`
	Status         OrderStatus     `json:"status"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	Billing        BillingDetails  `json:"billing_details"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var referenceRegex = regexp.MustCompile(`^ORD-\d+-[a-z0-9]{8}$`)

const referenceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateReference returns "ORD-<unix millis>-<8 random chars>".
// Collisions are not retried; the random suffix makes them negligible.
func GenerateReference(now time.Time) string {
	suffix := make([]byte, 8)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// Fall back to the clock if crypto/rand is unavailable
			n = big.NewInt((now.UnixNano() >> (i * 5)) % int64(len(referenceAlphabet)))
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}

// ValidReference reports whether ref has the order reference format
func ValidReference(ref string) bool {
	return referenceRegex.MatchString(ref)
}

// Valid reports whether the method is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentEFT, PaymentMobile:
		return true
	}
	return false
}

// IncludesEmail reports whether tickets should be emailed
func (d DeliveryMethod) IncludesEmail() bool {
	return d == DeliveryEmail || d == DeliveryBoth
}

// IncludesDownload reports whether tickets should be offered for download
func (d DeliveryMethod) IncludesDownload() bool {
	return d == DeliveryDownload || d == DeliveryBoth
}

// InitialDeliveryStatus returns the delivery state of a freshly created order
func (d DeliveryMethod) InitialDeliveryStatus() DeliveryStatus {
	var status DeliveryStatus
	if d.IncludesEmail() {
		s := EmailPending
		status.Email = &s
	}
	if d.IncludesDownload() {
		s := DownloadAvailable
		status.Download = &s
	}
	return status
}

// SetEmailStatus records the outcome of an email delivery
func (o *Order) SetEmailStatus(status EmailDeliveryStatus) {
	o.DeliveryStatus.Email = &status
	o.UpdatedAt = time.Now().UTC()
}

// SetDownloadStatus records the availability of the download channel
func (o *Order) SetDownloadStatus(status DownloadStatus) {
	o.DeliveryStatus.Download = &status
	o.UpdatedAt = time.Now().UTC()
}

// IsTerminal returns true once the order can no longer change status
func (o *Order) IsTerminal() bool {
	return o.Status == OrderCompleted || o.Status == OrderFailed
}

// MarkCompleted moves a pending order to completed
func (o *Order) MarkCompleted() error {
	return o.transition(OrderCompleted)
}

// MarkFailed moves a pending order to failed
func (o *Order) MarkFailed() error {
	return o.transition(OrderFailed)
}

func (o *Order) transition(to OrderStatus) error {
	if o.Status != OrderPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// CanReplace reports whether next may overwrite o in a store.
// A terminal status is never moved to a different status.
func (o *Order) CanReplace(next *Order) bool {
	return !o.IsTerminal() || o.Status == next.Status
}

// TicketCount returns the number of seats in the order
func (o *Order) TicketCount() int {
	return TicketCount(o.Lines)
}

// Totals returns the stored pricing of the order
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, ServiceFee: o.ServiceFee, Total: o.Total}
}

// Clone returns a deep copy so stores never share mutable state with callers
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = append([]SelectedLine(nil), o.Lines...)
	if o.DeliveryStatus.Email != nil {
		s := *o.DeliveryStatus.Email
		c.DeliveryStatus.Email = &s
	}
	if o.DeliveryStatus.Download != nil {
		s := *o.DeliveryStatus.Download
		c.DeliveryStatus.Download = &s
	}
	return &c
}

// GetStatusDisplayName returns a human-readable status name
func (o *Order) GetStatusDisplayName() string {
	switch o.Status {
	case OrderPending:
		return "Pending Payment"
	case OrderCompleted:
		return "Completed"
	case OrderFailed:
		return "Failed"
	default:
		return string(o.Status)
	}
}
