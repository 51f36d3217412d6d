package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

func (p *PostgresSeatRepository) GetShowtime(ctx context.Context, showtimeID int) (*domain.Showtime, error) {
	query := `
		SELECT sh.id, sh.movie_id, m.title, sh.theater_id, t.name, sh.starts_at
		FROM showtimes sh
		JOIN movies m ON sh.movie_id = m.id
		JOIN theaters t ON sh.theater_id = t.id
		WHERE sh.id = $1
	`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, showtimeID).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.MovieTitle,
		&showtime.TheaterID,
		&showtime.TheaterName,
		&showtime.StartsAt,
	)
	if err != nil {
		return nil, classifyError(err)
	}

	return &showtime, nil
}

// GetSeatMap returns every active seat of the showtime's theater with its
// live status. A finalized booking wins over a lock on the same seat.
func (p *PostgresSeatRepository) GetSeatMap(ctx context.Context, showtimeID int, now time.Time) (*domain.SeatMap, error) {
	showtime, err := p.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			se.id,
			se.theater_id,
			se.seat_row,
			se.seat_number,
			se.seat_class,
			se.is_active,
			sl.user_id,
			sl.expires_at,
			bs.booking_id
		FROM seats se
		LEFT JOIN seat_locks sl
			ON sl.seat_id = se.id AND sl.showtime_id = $1 AND sl.expires_at > $2
		LEFT JOIN booking_seats bs
			ON bs.seat_id = se.id AND bs.showtime_id = $1 AND bs.is_final
		WHERE se.theater_id = $3 AND se.is_active
		ORDER BY se.seat_row, se.seat_number
	`

	rows, err := p.db.Query(ctx, query, showtimeID, now, showtime.TheaterID)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	seatMap := domain.SeatMap{Showtime: *showtime}

	for rows.Next() {
		var state domain.SeatState

		err = rows.Scan(
			&state.ID,
			&state.TheaterID,
			&state.Row,
			&state.Number,
			&state.Class,
			&state.IsActive,
			&state.LockedBy,
			&state.LockedUntil,
			&state.BookingID,
		)
		if err != nil {
			return nil, err
		}

		switch {
		case state.BookingID != nil:
			state.Status = domain.SeatStatusBooked
			state.LockedBy = nil
			state.LockedUntil = nil
		case state.LockedBy != nil:
			state.Status = domain.SeatStatusLocked
		default:
			state.Status = domain.SeatStatusAvailable
		}

		seatMap.Seats = append(seatMap.Seats, state)
	}

	if err = rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return &seatMap, nil
}
