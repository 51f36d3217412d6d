package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

const finalSeatConstraint = "booking_seats_final_uniq"

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return classifyError(err)
	}

	err = fn(tx)
	if err == nil {
		return classifyError(tx.Commit(ctx))
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(classifyError(err), rollbackErr)
	}

	return classifyError(err)
}

// classifyError maps driver failures onto the domain error taxonomy. Errors
// that are already domain errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == finalSeatConstraint:
			return fmt.Errorf("%w: %s", domain.ErrAlreadyBooked, pgErr.Detail)
		case pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected,
			pgErr.Code == pgerrcode.LockNotAvailable,
			pgErr.Code == pgerrcode.QueryCanceled,
			pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code):
			return fmt.Errorf("%w: %w", domain.ErrTransientStore, err)
		}

		return err
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransientStore, err)
	}

	return err
}

func missingIds(requested, found []int) []int {
	seen := make(map[int]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}

	var missing []int
	for _, id := range requested {
		if !seen[id] {
			missing = append(missing, id)
		}
	}

	return missing
}

func collectSeatLocks(rows pgx.Rows) ([]domain.SeatLock, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SeatLock, error) {
		var lock domain.SeatLock
		err := row.Scan(&lock.SeatID, &lock.ShowtimeID, &lock.UserID, &lock.ExpiresAt)
		return lock, err
	})
}

type rowLock string

const (
	forShare  rowLock = "FOR SHARE"
	forUpdate rowLock = "FOR UPDATE"
)

// lockSeatRows locks the seat rows in id order. Acquiring locks and creating a
// booking share them; finalizing a booking takes them exclusively, so the
// finalized check and the write that depends on it see the same state.
func lockSeatRows(ctx context.Context, tx pgx.Tx, seatIDs []int, mode rowLock) ([]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id FROM seats
		WHERE id = ANY($1::int[])
		ORDER BY id
	`+string(mode), seatIDs)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
