package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"go.opentelemetry.io/otel/metric"
)

const DefaultStalePendingAfter = 30 * time.Minute

// BookingService drives bookings from pending through payment to confirmed or
// cancelled.
type BookingService struct {
	bookings  domain.BookingRepository
	payments  domain.PaymentRepository
	locks     domain.LockRepository
	provider  domain.PaymentProvider
	publisher Publisher
	logger    *slog.Logger
	now       clock

	stalePendingAfter time.Duration

	created metric.Int64Counter
	paid    metric.Int64Counter
}

func NewBookingService(
	bookings domain.BookingRepository,
	payments domain.PaymentRepository,
	locks domain.LockRepository,
	provider domain.PaymentProvider,
	publisher Publisher,
	logger *slog.Logger,
	stalePendingAfter time.Duration) *BookingService {

	if stalePendingAfter <= 0 {
		stalePendingAfter = DefaultStalePendingAfter
	}

	return &BookingService{
		bookings:          bookings,
		payments:          payments,
		locks:             locks,
		provider:          provider,
		publisher:         publisher,
		logger:            logger,
		now:               time.Now,
		stalePendingAfter: stalePendingAfter,
		created:           newCounter("reservation.bookings.created", "Bookings created"),
		paid:              newCounter("reservation.bookings.paid", "Bookings settled as paid"),
	}
}

// Create turns the user's live locks into a pending booking. The booking and
// its seats are stored as one unit or not at all.
func (s *BookingService) Create(ctx context.Context, input domain.BookingRequest) (*domain.BookingDetail, error) {
	ids := normalizeSeatIds(input.SeatIDs)
	if len(ids) == 0 {
		return nil, domain.ErrNoSeatsSelected
	}

	if input.TotalAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	booking, err := s.bookings.Create(ctx, domain.NewBooking{
		UserID:      input.UserID,
		ShowtimeID:  input.ShowtimeID,
		SeatIDs:     ids,
		TotalAmount: input.TotalAmount,
		Now:         s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create booking for showtime %d: %w", input.ShowtimeID, err)
	}

	s.created.Add(ctx, 1)
	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"showtime_id", booking.ShowtimeID,
		"seat_ids", ids)

	detail, err := s.bookings.GetDetail(ctx, booking.ID)
	if err != nil {
		s.logger.Error("failed to load created booking, returning it without details",
			"booking_id", booking.ID,
			"error", err)

		return partialDetail(booking), nil
	}

	return detail, nil
}

// ConfirmPayment settles a booking as paid. Repeated confirmations for a paid
// or confirmed booking change nothing and emit nothing. paymentIntent may be
// empty when the gateway does not report one.
func (s *BookingService) ConfirmPayment(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	paymentIntent string) (*domain.Booking, error) {

	settlement, err := s.bookings.MarkPaid(ctx, bookingID, gatewayReference, paymentIntent)
	if errors.Is(err, domain.ErrAlreadyBooked) {
		return nil, s.rejectDoubleSale(ctx, bookingID, gatewayReference, err)
	}
	if err != nil {
		return nil, fmt.Errorf("confirm payment of booking %d: %w", bookingID, err)
	}

	booking := settlement.Booking

	if !settlement.Changed {
		s.logger.Info("payment already settled", "booking_id", bookingID, "status", booking.Status)
		return booking, nil
	}

	s.paid.Add(ctx, 1)

	id := booking.ID
	publish(ctx, s.publisher, s.logger, domain.SeatEvent{
		Type:       domain.EventSeatsBooked,
		ShowtimeID: booking.ShowtimeID,
		SeatIDs:    booking.SeatIDs,
		BookingID:  &id,
	})

	return booking, nil
}

// rejectDoubleSale handles a payment for seats that another booking finalized
// after this user's locks lapsed. The booking is cancelled and the payment is
// flagged for refund.
func (s *BookingService) rejectDoubleSale(ctx context.Context, bookingID int, gatewayReference string, cause error) error {
	s.logger.Error("paid booking lost its seats to another booking",
		"booking_id", bookingID,
		"gateway_reference", gatewayReference,
		"error", cause)

	booking, err := s.bookings.Transition(ctx, bookingID, domain.BookingStatusPending, domain.BookingStatusCancelled)
	if err != nil {
		return errors.Join(fmt.Errorf("booking %d: %w", bookingID, cause), err)
	}

	reason := "seats were sold to another booking"
	err = s.payments.Upsert(ctx, &domain.Payment{
		BookingID:        bookingID,
		GatewayReference: gatewayReference,
		Amount:           booking.TotalAmount,
		Status:           domain.PaymentStatusRefundRequired,
		ErrorMsg:         &reason,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("booking %d: %w", bookingID, cause), err)
	}

	s.releaseBookingLocks(ctx, booking)

	return fmt.Errorf("booking %d: %w", bookingID, cause)
}

// FailPayment records a failed checkout attempt. The booking keeps its status:
// a pending booking may still be paid through another checkout while the locks
// last, and a paid booking stays paid because the failure is not about the
// payment that settled it. Only RefundPayment takes seats back.
func (s *BookingService) FailPayment(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	reason string) (*domain.Booking, error) {

	settlement, err := s.bookings.MarkPaymentFailed(ctx, bookingID, gatewayReference, reason)
	if err != nil {
		return nil, fmt.Errorf("fail payment of booking %d: %w", bookingID, err)
	}

	booking := settlement.Booking

	s.logger.Warn("payment failed",
		"booking_id", bookingID,
		"gateway_reference", gatewayReference,
		"reason", reason,
		"status", booking.Status)

	return booking, nil
}

// RefundPayment reverses the payment that settled a paid booking. The booking
// is cancelled and its seats become available again. A reference that does
// not name the settling payment is logged and changes nothing.
func (s *BookingService) RefundPayment(
	ctx context.Context,
	bookingID int,
	paymentReference,
	reason string) (*domain.Booking, error) {

	settlement, err := s.bookings.MarkRefunded(ctx, bookingID, paymentReference, reason)
	if err != nil {
		return nil, fmt.Errorf("refund payment of booking %d: %w", bookingID, err)
	}

	booking := settlement.Booking

	if !settlement.Changed {
		s.logger.Warn("refund left booking unchanged",
			"booking_id", bookingID,
			"payment_reference", paymentReference,
			"status", booking.Status)

		return booking, nil
	}

	s.logger.Warn("paid booking refunded",
		"booking_id", bookingID,
		"payment_reference", paymentReference,
		"reason", reason)

	publishReleased(ctx, s.publisher, s.logger, booking.ShowtimeID, booking.SeatIDs, "")

	return booking, nil
}

// Settle routes a gateway outcome to ConfirmPayment, FailPayment or
// RefundPayment.
func (s *BookingService) Settle(ctx context.Context, outcome domain.PaymentOutcome) (*domain.Booking, error) {
	switch outcome.Outcome {
	case domain.PaymentSucceeded:
		return s.ConfirmPayment(ctx, outcome.BookingID, outcome.GatewayReference, outcome.PaymentIntent)
	case domain.PaymentFailed:
		return s.FailPayment(ctx, outcome.BookingID, outcome.GatewayReference, outcome.Reason)
	case domain.PaymentRefunded:
		return s.RefundPayment(ctx, outcome.BookingID, outcome.GatewayReference, outcome.Reason)
	default:
		return nil, fmt.Errorf("unknown payment outcome %q", outcome.Outcome)
	}
}

// StartCheckout opens a gateway checkout for a pending booking and records the
// pending payment.
func (s *BookingService) StartCheckout(ctx context.Context, bookingID, userID int) (*domain.CheckoutSession, error) {
	detail, err := s.Get(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	if detail.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, detail.Status, domain.ErrInvalidTransition)
	}

	checkout, err := s.provider.CreateCheckoutSession(detail)
	if err != nil {
		return nil, fmt.Errorf("create checkout session for booking %d: %w", bookingID, err)
	}

	err = s.payments.Create(ctx, &domain.Payment{
		BookingID:        bookingID,
		GatewayReference: checkout.ID,
		Amount:           detail.TotalAmount,
		Status:           domain.PaymentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("record payment for booking %d: %w", bookingID, err)
	}

	return checkout, nil
}

// Cancel lets the owner abandon a pending booking. The owner's locks on its
// seats are released with it.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID int) (*domain.Booking, error) {
	detail, err := s.Get(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.Transition(ctx, detail.ID, domain.BookingStatusPending, domain.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	s.releaseBookingLocks(ctx, booking)

	return booking, nil
}

// Confirm marks a paid booking as confirmed once tickets are issued.
func (s *BookingService) Confirm(ctx context.Context, bookingID, userID int) (*domain.Booking, error) {
	detail, err := s.Get(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.Transition(ctx, detail.ID, domain.BookingStatusPaid, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm booking %d: %w", bookingID, err)
	}

	return booking, nil
}

// Get returns the booking if it belongs to the user. Bookings of other users
// are reported as not found.
func (s *BookingService) Get(ctx context.Context, bookingID, userID int) (*domain.BookingDetail, error) {
	detail, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, err)
	}

	if detail.UserID != userID {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrRecordNotFound)
	}

	return detail, nil
}

func (s *BookingService) List(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	return s.bookings.ListByUserId(ctx, userID, pagination)
}

// CancelStalePending cancels pending bookings that outlived the grace period
// without a checkout in flight.
func (s *BookingService) CancelStalePending(ctx context.Context) ([]domain.Booking, error) {
	cancelled, err := s.bookings.CancelStalePending(ctx, s.now().Add(-s.stalePendingAfter))
	if err != nil {
		return nil, fmt.Errorf("cancel stale pending bookings: %w", err)
	}

	for _, b := range cancelled {
		s.logger.Info("cancelled stale pending booking", "booking_id", b.ID, "user_id", b.UserID)
	}

	return cancelled, nil
}

func (s *BookingService) releaseBookingLocks(ctx context.Context, booking *domain.Booking) {
	released, err := s.locks.ReleaseLocks(ctx, booking.ShowtimeID, booking.SeatIDs, booking.UserID)
	if err != nil {
		s.logger.Error("failed to release locks of booking", "booking_id", booking.ID, "error", err)
		return
	}

	publishReleased(ctx, s.publisher, s.logger, booking.ShowtimeID, released, "")
}

// partialDetail describes a stored booking from what Create returned, for when
// the full detail cannot be read back.
func partialDetail(booking *domain.Booking) *domain.BookingDetail {
	detail := &domain.BookingDetail{
		Booking:  *booking,
		Showtime: domain.Showtime{ID: booking.ShowtimeID},
		Seats:    make([]domain.BookingSeat, len(booking.SeatIDs)),
	}

	for i, seatID := range booking.SeatIDs {
		detail.Seats[i] = domain.BookingSeat{
			BookingID:  booking.ID,
			SeatID:     seatID,
			ShowtimeID: booking.ShowtimeID,
		}
	}

	return detail
}
