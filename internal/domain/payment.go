package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusSucceeded      PaymentStatus = "succeeded"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusRefundRequired PaymentStatus = "refund_required"
	PaymentStatusRefunded       PaymentStatus = "refunded"
)

type Payment struct {
	ID               int
	BookingID        int
	GatewayReference string
	PaymentIntent    *string
	Amount           decimal.Decimal
	Currency         string
	Status           PaymentStatus
	ErrorMsg         *string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

type PaymentOutcomeKind string

const (
	PaymentSucceeded PaymentOutcomeKind = "succeeded"
	PaymentFailed    PaymentOutcomeKind = "failed"
	PaymentRefunded  PaymentOutcomeKind = "refunded"
)

// PaymentOutcome is what the gateway reports for a booking.
//
// GatewayReference names the checkout attempt for succeeded and failed
// outcomes. PaymentIntent is the gateway's id for the money movement behind a
// succeeded checkout; refunds name it in GatewayReference.
type PaymentOutcome struct {
	BookingID        int                `json:"bookingId"`
	GatewayReference string             `json:"gatewayReference"`
	PaymentIntent    string             `json:"paymentIntent,omitempty"`
	Outcome          PaymentOutcomeKind `json:"outcome"`
	Reason           string             `json:"reason,omitempty"`
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	Upsert(ctx context.Context, payment *Payment) error
}

type PaymentProvider interface {
	CreateCheckoutSession(booking *BookingDetail) (*CheckoutSession, error)
}
