package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies checkout and delivery failures for callers
type ErrorKind string

const (
	KindEmptyCart        ErrorKind = "EmptyCart"
	KindAmountMismatch   ErrorKind = "AmountMismatch"
	KindEventNotFound    ErrorKind = "EventNotFound"
	KindValidation       ErrorKind = "ValidationError"
	KindInternal         ErrorKind = "InternalError"
	KindDelivery         ErrorKind = "DeliveryError"
	KindDuplicateRequest ErrorKind = "DuplicateRequest"
	KindOrderNotFound    ErrorKind = "OrderNotFound"
)

// CheckoutError is the typed error returned across the checkout boundary
type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Is matches any CheckoutError of the same kind, so sentinels work with errors.Is
func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	return ok && t.Kind == e.Kind
}

// Common errors used throughout the application
var (
	ErrEmptyCart        = &CheckoutError{Kind: KindEmptyCart, Message: "no tickets selected"}
	ErrAmountMismatch   = &CheckoutError{Kind: KindAmountMismatch, Message: "amount does not match order total"}
	ErrEventNotFound    = &CheckoutError{Kind: KindEventNotFound, Message: "event not found"}
	ErrValidation       = &CheckoutError{Kind: KindValidation, Message: "invalid input"}
	ErrInternal         = &CheckoutError{Kind: KindInternal, Message: "internal error"}
	ErrDelivery         = &CheckoutError{Kind: KindDelivery, Message: "ticket delivery failed"}
	ErrDuplicateRequest = &CheckoutError{Kind: KindDuplicateRequest, Message: "request already in progress"}
	ErrOrderNotFound    = &CheckoutError{Kind: KindOrderNotFound, Message: "order not found"}

	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// NewError builds a CheckoutError of the given kind
func NewError(kind ErrorKind, message string, err error) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything untyped as internal
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
