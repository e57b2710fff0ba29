// Package payment wraps the hosted checkout of the payment processor.
// The application never tracks payment state itself: it creates a session,
// and later asks the processor what happened to it.
package payment

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no processor secret key is set.
var ErrNotConfigured = errors.New("payment: processor not configured")

// ErrSessionNotFound is returned when the processor does not know a session.
var ErrSessionNotFound = errors.New("payment: session not found")

// StatusPaid is the payment_status of a settled checkout session.
const StatusPaid = "paid"

type LineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64
	Quantity    int64
}

type CheckoutRequest struct {
	Items             []LineItem
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
}

// Session is the part of a checkout session the application reads.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	PaymentIntent string
	Metadata      map[string]string
}

// Paid reports whether the processor marked the session as paid.
func (s *Session) Paid() bool { return s.PaymentStatus == StatusPaid }

// Processor creates and retrieves checkout sessions.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
