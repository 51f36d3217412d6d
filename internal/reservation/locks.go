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

const DefaultLockTTL = 10 * time.Minute

// LockManager grants short lived exclusive holds on seats of a showtime.
type LockManager struct {
	locks     domain.LockRepository
	seats     domain.SeatRepository
	publisher Publisher
	logger    *slog.Logger
	ttl       time.Duration
	now       clock

	acquired  metric.Int64Counter
	conflicts metric.Int64Counter
}

func NewLockManager(
	locks domain.LockRepository,
	seats domain.SeatRepository,
	publisher Publisher,
	logger *slog.Logger,
	ttl time.Duration) *LockManager {

	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &LockManager{
		locks:     locks,
		seats:     seats,
		publisher: publisher,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		acquired:  newCounter("reservation.locks.acquired", "Seats locked"),
		conflicts: newCounter("reservation.locks.conflicts", "Lock requests rejected by a conflicting hold or booking"),
	}
}

// Acquire locks all of the seats for the holder or none of them. Seats the
// holder already owns get a fresh expiry.
func (m *LockManager) Acquire(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	holder domain.Holder) ([]domain.SeatLock, error) {

	ids := normalizeSeatIds(seatIDs)
	if len(ids) == 0 {
		return nil, domain.ErrNoSeatsSelected
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	locks, err := m.locks.AcquireLocks(ctx, domain.LockRequest{
		ShowtimeID: showtimeID,
		SeatIDs:    ids,
		UserID:     holder.UserID,
		Now:        now,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatConflict) {
			m.conflicts.Add(ctx, 1)
			m.logger.Warn("seat lock conflict",
				"showtime_id", showtimeID,
				"user_id", holder.UserID,
				"conflicting_seats", domain.ConflictingSeats(err))
		}

		return nil, fmt.Errorf("acquire seats for showtime %d: %w", showtimeID, err)
	}

	m.acquired.Add(ctx, int64(len(locks)))

	userID := holder.UserID
	publish(ctx, m.publisher, m.logger, domain.SeatEvent{
		Type:        domain.EventSeatsLocked,
		ShowtimeID:  showtimeID,
		SeatIDs:     ids,
		LockedBy:    &userID,
		LockedUntil: &expiresAt,
		Origin:      holder.ConnectionID,
	})

	return locks, nil
}

// Release drops the holder's locks on the given seats. Seats the holder does
// not own are ignored, so releasing twice is harmless.
func (m *LockManager) Release(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	holder domain.Holder) ([]int, error) {

	_, err := m.seats.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("showtime %d: %w", showtimeID, err)
	}

	released, err := m.locks.ReleaseLocks(ctx, showtimeID, normalizeSeatIds(seatIDs), holder.UserID)
	if err != nil {
		return nil, fmt.Errorf("release seats for showtime %d: %w", showtimeID, err)
	}

	publishReleased(ctx, m.publisher, m.logger, showtimeID, released, holder.ConnectionID)

	return released, nil
}

// ReleaseAll drops every lock of the user across all showtimes. It runs when
// the user's last realtime connection goes away.
func (m *LockManager) ReleaseAll(ctx context.Context, userID int) ([]domain.SeatLock, error) {
	released, err := m.locks.ReleaseAllLocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("release all seats of user %d: %w", userID, err)
	}

	if len(released) > 0 {
		m.logger.Info("released seat locks of user", "user_id", userID, "count", len(released))
	}

	publishReleasedLocks(ctx, m.publisher, m.logger, released, "")

	return released, nil
}
