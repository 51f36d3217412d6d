package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLockRepo struct {
	mock.Mock
	domain.LockRepository
}

func (m *MockLockRepo) AcquireLocks(ctx context.Context, req domain.LockRequest) ([]domain.SeatLock, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}

func (m *MockLockRepo) ReleaseLocks(ctx context.Context, showtimeID int, seatIDs []int, userID int) ([]int, error) {
	args := m.Called(ctx, showtimeID, seatIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockLockRepo) ReleaseAllLocks(ctx context.Context, userID int) ([]domain.SeatLock, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}

func (m *MockLockRepo) DeleteExpiredLocks(ctx context.Context, now time.Time) ([]domain.SeatLock, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}
