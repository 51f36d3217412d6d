package domain

import (
	"context"
	"time"
)

type SeatLock struct {
	SeatID     int
	ShowtimeID int
	UserID     int
	ExpiresAt  time.Time
}

// Holder identifies who asks for a lock. ConnectionID is the realtime
// connection the request originated from and may be empty.
type Holder struct {
	UserID       int
	ConnectionID string
}

type LockRequest struct {
	ShowtimeID int
	SeatIDs    []int
	UserID     int
	Now        time.Time
	ExpiresAt  time.Time
}

type LockRepository interface {
	// AcquireLocks locks every requested seat or none of them.
	AcquireLocks(ctx context.Context, req LockRequest) ([]SeatLock, error)
	ReleaseLocks(ctx context.Context, showtimeID int, seatIDs []int, userID int) ([]int, error)
	ReleaseAllLocks(ctx context.Context, userID int) ([]SeatLock, error)
	DeleteExpiredLocks(ctx context.Context, now time.Time) ([]SeatLock, error)
}

// GroupByShowtime splits locks into seat id lists keyed by showtime.
func GroupByShowtime(locks []SeatLock) map[int][]int {
	groups := make(map[int][]int)

	for _, l := range locks {
		groups[l.ShowtimeID] = append(groups[l.ShowtimeID], l.SeatID)
	}

	return groups
}
