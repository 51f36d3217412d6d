package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// Create inserts the booking and its seat links in one transaction. Nothing
// is written unless the user still holds an unexpired lock on every seat and
// none of the seats is finalized by another booking.
func (p *PostgresBookingRepository) Create(ctx context.Context, nb domain.NewBooking) (*domain.Booking, error) {
	booking := domain.Booking{
		UserID:      nb.UserID,
		ShowtimeID:  nb.ShowtimeID,
		TotalAmount: nb.TotalAmount,
		Status:      domain.BookingStatusPending,
		SeatIDs:     nb.SeatIDs,
	}

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		_, err := lockSeatRows(ctx, tx, nb.SeatIDs, forShare)
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT seat_id FROM seat_locks
			WHERE showtime_id = $1 AND user_id = $2 AND seat_id = ANY($3::int[]) AND expires_at > $4
			FOR UPDATE
		`, nb.ShowtimeID, nb.UserID, nb.SeatIDs, nb.Now)
		if err != nil {
			return err
		}

		heldSeatIDs, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}

		if missing := missingIds(nb.SeatIDs, heldSeatIDs); len(missing) > 0 {
			return fmt.Errorf("seats %v: %w", missing, domain.ErrNotLocked)
		}

		bookedSeatIDs, err := finalizedSeats(ctx, tx, nb.ShowtimeID, nb.SeatIDs)
		if err != nil {
			return err
		}

		if len(bookedSeatIDs) > 0 {
			return &domain.SeatConflictError{SeatIDs: bookedSeatIDs, Booked: true}
		}

		query := `
			INSERT INTO bookings (user_id, showtime_id, total_amount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id, created_at, updated_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.UserID,
			booking.ShowtimeID,
			booking.TotalAmount,
			booking.Status,
			nb.Now,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
		if err != nil {
			return err
		}

		seatRows := make([][]any, 0, len(nb.SeatIDs))
		for _, seatID := range nb.SeatIDs {
			seatRows = append(seatRows, []any{booking.ID, seatID, booking.ShowtimeID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "seat_id", "showtime_id"},
			pgx.CopyFromRows(seatRows),
		)
		if err != nil {
			return fmt.Errorf("failed to link seats to booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) GetDetail(ctx context.Context, bookingID int) (*domain.BookingDetail, error) {
	query := `
		SELECT
			b.id,
			b.user_id,
			b.showtime_id,
			b.total_amount,
			b.status,
			b.created_at,
			b.updated_at,
			sh.movie_id,
			m.title,
			sh.theater_id,
			t.name,
			sh.starts_at
		FROM bookings b
		JOIN showtimes sh ON b.showtime_id = sh.id
		JOIN movies m ON sh.movie_id = m.id
		JOIN theaters t ON sh.theater_id = t.id
		WHERE b.id = $1
	`

	var detail domain.BookingDetail

	err := p.db.QueryRow(ctx, query, bookingID).Scan(
		&detail.ID,
		&detail.UserID,
		&detail.ShowtimeID,
		&detail.TotalAmount,
		&detail.Status,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.Showtime.MovieID,
		&detail.Showtime.MovieTitle,
		&detail.Showtime.TheaterID,
		&detail.Showtime.TheaterName,
		&detail.Showtime.StartsAt,
	)
	if err != nil {
		return nil, classifyError(err)
	}

	detail.Showtime.ID = detail.ShowtimeID

	seats, err := p.retrieveBookingSeats(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	payments, err := p.retrievePayments(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	detail.Seats = seats
	detail.Payments = payments
	detail.SeatIDs = make([]int, len(seats))
	for i, s := range seats {
		detail.SeatIDs[i] = s.SeatID
	}

	return &detail, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(ctx context.Context, bookingID int) ([]domain.BookingSeat, error) {
	query := `
		SELECT bs.booking_id, bs.seat_id, bs.showtime_id, s.seat_row, s.seat_number, s.seat_class
		FROM booking_seats bs
		JOIN seats s ON bs.seat_id = s.id
		WHERE bs.booking_id = $1
		ORDER BY s.seat_row, s.seat_number
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	seats := make([]domain.BookingSeat, 0)

	for rows.Next() {
		var seat domain.BookingSeat

		err := rows.Scan(
			&seat.BookingID,
			&seat.SeatID,
			&seat.ShowtimeID,
			&seat.Row,
			&seat.Number,
			&seat.Class,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return seats, nil
}

func (p *PostgresBookingRepository) retrievePayments(ctx context.Context, bookingID int) ([]domain.Payment, error) {
	query := `
		SELECT id, booking_id, gateway_reference, payment_intent, amount, currency, status, error_message, created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)

	for rows.Next() {
		var payment domain.Payment

		err := rows.Scan(
			&payment.ID,
			&payment.BookingID,
			&payment.GatewayReference,
			&payment.PaymentIntent,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.ErrorMsg,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return payments, nil
}

func (p *PostgresBookingRepository) ListByUserId(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			b.status,
			m.title,
			t.name,
			sh.starts_at,
			b.total_amount,
			(SELECT COUNT(*) FROM booking_seats bs WHERE bs.booking_id = b.id),
			b.created_at
		FROM bookings b
		JOIN showtimes sh ON b.showtime_id = sh.id
		JOIN movies m ON sh.movie_id = m.id
		JOIN theaters t ON sh.theater_id = t.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, classifyError(err)
	}
	defer rows.Close()

	bookings := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err := rows.Scan(
			&totalRecords,
			&summary.BookingID,
			&summary.Status,
			&summary.MovieTitle,
			&summary.TheaterName,
			&summary.StartsAt,
			&summary.TotalAmount,
			&summary.SeatCount,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		bookings = append(bookings, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, classifyError(err)
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return bookings, metadata, nil
}

// MarkPaid moves a pending booking to paid, finalizes its seats and records the
// succeeded payment. The seat rows are locked exclusively first, so no lock can
// be taken on a seat while it is being finalized, and every lock left on the
// finalized seats is dropped, whoever holds it. A booking that is already paid
// or confirmed is returned unchanged.
func (p *PostgresBookingRepository) MarkPaid(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	paymentIntent string) (*domain.Settlement, error) {

	var settlement domain.Settlement

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		booking, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		settlement.Booking = booking

		if booking.Status.Final() {
			return nil
		}

		if !booking.Status.CanTransitionTo(domain.BookingStatusPaid) {
			return fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, domain.ErrInvalidTransition)
		}

		_, err = lockSeatRows(ctx, tx, booking.SeatIDs, forUpdate)
		if err != nil {
			return err
		}

		err = setStatus(ctx, tx, booking, domain.BookingStatusPaid)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE booking_seats SET is_final = TRUE WHERE booking_id = $1`, bookingID)
		if err != nil {
			return err
		}

		err = upsertPayment(ctx, tx, &domain.Payment{
			BookingID:        bookingID,
			GatewayReference: gatewayReference,
			PaymentIntent:    nullableString(paymentIntent),
			Amount:           booking.TotalAmount,
			Currency:         defaultCurrency,
			Status:           domain.PaymentStatusSucceeded,
		})
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM seat_locks
			WHERE showtime_id = $1 AND seat_id = ANY($2::int[])
		`, booking.ShowtimeID, booking.SeatIDs)
		if err != nil {
			return err
		}

		settlement.Changed = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &settlement, nil
}

// MarkPaymentFailed records a failed checkout attempt. The booking keeps its
// status: a pending booking may be paid through another checkout while its
// locks last, and a paid booking was settled by a different attempt. A
// payment that already succeeded is never downgraded.
func (p *PostgresBookingRepository) MarkPaymentFailed(
	ctx context.Context,
	bookingID int,
	gatewayReference,
	reason string) (*domain.Settlement, error) {

	var settlement domain.Settlement

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		booking, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		settlement.Booking = booking

		if gatewayReference == "" {
			_, err = tx.Exec(ctx, `
				UPDATE payments
				SET status = 'failed', error_message = $2, updated_at = NOW()
				WHERE booking_id = $1 AND status = 'pending'
			`, bookingID, reason)

			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO payments (booking_id, gateway_reference, amount, currency, status, error_message)
			VALUES ($1, $2, $3, $4, 'failed', $5)
			ON CONFLICT (gateway_reference) DO UPDATE
				SET status = EXCLUDED.status,
					error_message = EXCLUDED.error_message,
					updated_at = NOW()
				WHERE payments.status = 'pending'
		`, bookingID, gatewayReference, booking.TotalAmount, defaultCurrency, reason)

		return err
	})
	if err != nil {
		return nil, err
	}

	return &settlement, nil
}

// MarkRefunded reverses the payment that settled a booking. paymentReference
// must name that payment, either by its checkout reference or by its payment
// intent. A paid booking is then cancelled and its seats lose their final
// claim; a confirmed booking keeps its status since tickets were issued.
func (p *PostgresBookingRepository) MarkRefunded(
	ctx context.Context,
	bookingID int,
	paymentReference,
	reason string) (*domain.Settlement, error) {

	var settlement domain.Settlement

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		booking, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		settlement.Booking = booking

		if paymentReference == "" {
			return nil
		}

		tag, err := tx.Exec(ctx, `
			UPDATE payments
			SET status = 'refunded', error_message = $3, updated_at = NOW()
			WHERE booking_id = $1
				AND status = 'succeeded'
				AND (gateway_reference = $2 OR payment_intent = $2)
		`, bookingID, paymentReference, reason)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 || booking.Status != domain.BookingStatusPaid {
			return nil
		}

		err = setStatus(ctx, tx, booking, domain.BookingStatusCancelled)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE booking_seats SET is_final = FALSE WHERE booking_id = $1`, bookingID)
		if err != nil {
			return err
		}

		settlement.Changed = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &settlement, nil
}

func (p *PostgresBookingRepository) Transition(
	ctx context.Context,
	bookingID int,
	from,
	to domain.BookingStatus) (*domain.Booking, error) {

	var booking *domain.Booking

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var err error

		booking, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != from || !from.CanTransitionTo(to) {
			return fmt.Errorf("booking %d is %s, cannot become %s: %w", bookingID, booking.Status, to, domain.ErrInvalidTransition)
		}

		err = setStatus(ctx, tx, booking, to)
		if err != nil {
			return err
		}

		if from.Final() && !to.Final() {
			_, err = tx.Exec(ctx, `UPDATE booking_seats SET is_final = FALSE WHERE booking_id = $1`, bookingID)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// CancelStalePending cancels pending bookings created before the cutoff that
// have no checkout in flight.
func (p *PostgresBookingRepository) CancelStalePending(ctx context.Context, createdBefore time.Time) ([]domain.Booking, error) {
	query := `
		UPDATE bookings b
		SET status = 'cancelled', updated_at = NOW()
		WHERE b.status = 'pending'
			AND b.created_at < $1
			AND NOT EXISTS (
				SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status = 'pending'
			)
		RETURNING b.id, b.user_id, b.showtime_id, b.total_amount, b.status, b.created_at, b.updated_at
	`

	rows, err := p.db.Query(ctx, query, createdBefore)
	if err != nil {
		return nil, classifyError(err)
	}

	bookings, err := pgx.CollectRows(rows, scanBooking)
	if err != nil {
		return nil, classifyError(err)
	}

	return bookings, nil
}

func lockBooking(ctx context.Context, tx pgx.Tx, bookingID int) (*domain.Booking, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, showtime_id, total_amount, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := pgx.CollectExactlyOneRow(rows, scanBooking)
	if err != nil {
		return nil, classifyError(err)
	}

	rows, err = tx.Query(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = $1 ORDER BY seat_id`, bookingID)
	if err != nil {
		return nil, err
	}

	booking.SeatIDs, err = pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func setStatus(ctx context.Context, tx pgx.Tx, booking *domain.Booking, status domain.BookingStatus) error {
	err := tx.QueryRow(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, booking.ID, status).Scan(&booking.UpdatedAt)
	if err != nil {
		return err
	}

	booking.Status = status

	return nil
}

func scanBooking(row pgx.CollectableRow) (domain.Booking, error) {
	var booking domain.Booking

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.TotalAmount,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	return booking, err
}
