package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, nb domain.NewBooking) (*domain.Booking, error) {
	args := m.Called(ctx, nb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetDetail(ctx context.Context, bookingID int) (*domain.BookingDetail, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDetail), args.Error(1)
}

func (m *MockBookingRepo) ListByUserId(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.BookingSummary), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockBookingRepo) MarkPaid(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	paymentIntent string) (*domain.Settlement, error) {

	args := m.Called(ctx, bookingID, gatewayReference, paymentIntent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockBookingRepo) MarkPaymentFailed(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	reason string) (*domain.Settlement, error) {

	args := m.Called(ctx, bookingID, gatewayReference, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockBookingRepo) MarkRefunded(
	ctx context.Context,
	bookingID int,
	paymentReference,
	reason string) (*domain.Settlement, error) {

	args := m.Called(ctx, bookingID, paymentReference, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockBookingRepo) Transition(
	ctx context.Context,
	bookingID int,
	from,
	to domain.BookingStatus) (*domain.Booking, error) {

	args := m.Called(ctx, bookingID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) CancelStalePending(ctx context.Context, createdBefore time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, createdBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}
