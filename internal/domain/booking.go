package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusPaid, BookingStatusCancelled},
	BookingStatusPaid:    {BookingStatusConfirmed, BookingStatusCancelled},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Final reports whether the booking permanently owns its seats.
func (s BookingStatus) Final() bool {
	return s == BookingStatusPaid || s == BookingStatusConfirmed
}

type Booking struct {
	ID          int
	UserID      int
	ShowtimeID  int
	TotalAmount decimal.Decimal
	Status      BookingStatus
	SeatIDs     []int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BookingSeat struct {
	BookingID  int
	SeatID     int
	ShowtimeID int
	Row        string
	Number     int
	Class      SeatClass
}

type BookingDetail struct {
	Booking
	Showtime Showtime
	Seats    []BookingSeat
	Payments []Payment
}

type BookingSummary struct {
	BookingID   int
	Status      BookingStatus
	MovieTitle  string
	TheaterName string
	StartsAt    time.Time
	TotalAmount decimal.Decimal
	SeatCount   int
	CreatedAt   time.Time
}

// BookingRequest is a user's request to book the seats they hold.
type BookingRequest struct {
	ShowtimeID  int
	SeatIDs     []int
	UserID      int
	TotalAmount decimal.Decimal
}

type NewBooking struct {
	UserID      int
	ShowtimeID  int
	SeatIDs     []int
	TotalAmount decimal.Decimal
	Now         time.Time
}

// Settlement is the result of applying a payment outcome to a booking.
// Changed is false when the booking status was left as it was, which is the
// case for a redelivered outcome.
type Settlement struct {
	Booking *Booking
	Changed bool
}

type BookingRepository interface {
	// Create verifies the caller's locks and inserts the booking with its
	// seats as one unit.
	Create(ctx context.Context, nb NewBooking) (*Booking, error)
	GetDetail(ctx context.Context, bookingID int) (*BookingDetail, error)
	ListByUserId(ctx context.Context, userID int, pagination Pagination) ([]BookingSummary, *Metadata, error)
	MarkPaid(ctx context.Context, bookingID int, gatewayReference, paymentIntent string) (*Settlement, error)
	// MarkPaymentFailed records a failed checkout attempt. It never changes the
	// booking status.
	MarkPaymentFailed(ctx context.Context, bookingID int, gatewayReference, reason string) (*Settlement, error)
	// MarkRefunded reverses the payment that settled a paid booking. A
	// reference that does not name that payment leaves the booking alone.
	MarkRefunded(ctx context.Context, bookingID int, paymentReference, reason string) (*Settlement, error)
	Transition(ctx context.Context, bookingID int, from, to BookingStatus) (*Booking, error)
	CancelStalePending(ctx context.Context, createdBefore time.Time) ([]Booking, error)
}
