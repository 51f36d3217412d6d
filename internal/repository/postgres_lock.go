package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

type PostgresLockRepository struct {
	db *pgxpool.Pool
}

func NewPostgresLockRepository(db *pgxpool.Pool) *PostgresLockRepository {
	return &PostgresLockRepository{
		db: db,
	}
}

// AcquireLocks runs the whole seat set as one transaction. The primary key on
// (seat_id, showtime_id) serializes competing holders: a row that is already
// held by another user is left untouched by the upsert and missing from
// RETURNING, which aborts the transaction.
func (p *PostgresLockRepository) AcquireLocks(ctx context.Context, req domain.LockRequest) ([]domain.SeatLock, error) {
	var locks []domain.SeatLock

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var theaterID int

		err := tx.QueryRow(ctx, `SELECT theater_id FROM showtimes WHERE id = $1`, req.ShowtimeID).Scan(&theaterID)
		if err != nil {
			return fmt.Errorf("showtime %d: %w", req.ShowtimeID, classifyError(err))
		}

		// Shared row locks serialize this check against a settlement that is
		// finalizing the same seats.
		rows, err := tx.Query(ctx, `
			SELECT id FROM seats
			WHERE theater_id = $1 AND is_active AND id = ANY($2::int[])
			ORDER BY id
			FOR SHARE
		`, theaterID, req.SeatIDs)
		if err != nil {
			return err
		}

		knownSeatIDs, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}

		if missing := missingIds(req.SeatIDs, knownSeatIDs); len(missing) > 0 {
			return fmt.Errorf("seats %v: %w", missing, domain.ErrRecordNotFound)
		}

		bookedSeatIDs, err := finalizedSeats(ctx, tx, req.ShowtimeID, req.SeatIDs)
		if err != nil {
			return err
		}

		if len(bookedSeatIDs) > 0 {
			return &domain.SeatConflictError{SeatIDs: bookedSeatIDs, Booked: true}
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM seat_locks
			WHERE showtime_id = $1 AND seat_id = ANY($2::int[]) AND expires_at <= $3
		`, req.ShowtimeID, req.SeatIDs, req.Now)
		if err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
			INSERT INTO seat_locks (seat_id, showtime_id, user_id, expires_at)
			SELECT seat_id, $2, $3, $4 FROM unnest($1::int[]) AS seat_id
			ON CONFLICT (seat_id, showtime_id) DO UPDATE
				SET expires_at = EXCLUDED.expires_at
				WHERE seat_locks.user_id = EXCLUDED.user_id
			RETURNING seat_id, showtime_id, user_id, expires_at
		`, req.SeatIDs, req.ShowtimeID, req.UserID, req.ExpiresAt)
		if err != nil {
			return err
		}

		locks, err = collectSeatLocks(rows)
		if err != nil {
			return err
		}

		if len(locks) != len(req.SeatIDs) {
			lockedSeatIDs := make([]int, len(locks))
			for i, l := range locks {
				lockedSeatIDs[i] = l.SeatID
			}

			return &domain.SeatConflictError{SeatIDs: missingIds(req.SeatIDs, lockedSeatIDs)}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return locks, nil
}

func (p *PostgresLockRepository) ReleaseLocks(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	userID int) ([]int, error) {

	query := `
		DELETE FROM seat_locks
		WHERE showtime_id = $1 AND user_id = $2 AND seat_id = ANY($3::int[])
		RETURNING seat_id
	`

	rows, err := p.db.Query(ctx, query, showtimeID, userID, seatIDs)
	if err != nil {
		return nil, classifyError(err)
	}

	released, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, classifyError(err)
	}

	return released, nil
}

func (p *PostgresLockRepository) ReleaseAllLocks(ctx context.Context, userID int) ([]domain.SeatLock, error) {
	query := `
		DELETE FROM seat_locks
		WHERE user_id = $1
		RETURNING seat_id, showtime_id, user_id, expires_at
	`

	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, classifyError(err)
	}

	locks, err := collectSeatLocks(rows)
	if err != nil {
		return nil, classifyError(err)
	}

	return locks, nil
}

// DeleteExpiredLocks removes every lock that expired at or before now. Each
// deleted row is returned to exactly one caller, so concurrent sweeps never
// report the same lock twice.
func (p *PostgresLockRepository) DeleteExpiredLocks(ctx context.Context, now time.Time) ([]domain.SeatLock, error) {
	query := `
		DELETE FROM seat_locks
		WHERE expires_at <= $1
		RETURNING seat_id, showtime_id, user_id, expires_at
	`

	rows, err := p.db.Query(ctx, query, now)
	if err != nil {
		return nil, classifyError(err)
	}

	locks, err := collectSeatLocks(rows)
	if err != nil {
		return nil, classifyError(err)
	}

	return locks, nil
}

func finalizedSeats(ctx context.Context, tx pgx.Tx, showtimeID int, seatIDs []int) ([]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT seat_id FROM booking_seats
		WHERE showtime_id = $1 AND is_final AND seat_id = ANY($2::int[])
		ORDER BY seat_id
	`, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[int])
}
