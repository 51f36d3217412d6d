package mocks

import (
	"context"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) Acquire(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	holder domain.Holder) ([]domain.SeatLock, error) {

	args := m.Called(ctx, showtimeID, seatIDs, holder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}

func (m *MockLockManager) Release(ctx context.Context, showtimeID int, seatIDs []int, holder domain.Holder) ([]int, error) {
	args := m.Called(ctx, showtimeID, seatIDs, holder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockLockManager) ReleaseAll(ctx context.Context, userID int) ([]domain.SeatLock, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}
