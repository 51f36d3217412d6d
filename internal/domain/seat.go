package domain

import (
	"context"
	"time"
)

type SeatClass string

const (
	SeatClassRegular SeatClass = "regular"
	SeatClassPremium SeatClass = "premium"
	SeatClassVIP     SeatClass = "vip"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusLocked    SeatStatus = "locked"
	SeatStatusBooked    SeatStatus = "booked"
)

type Seat struct {
	ID        int
	TheaterID int
	Row       string
	Number    int
	Class     SeatClass
	IsActive  bool
}

type Showtime struct {
	ID          int
	MovieID     int
	MovieTitle  string
	TheaterID   int
	TheaterName string
	StartsAt    time.Time
}

// SeatState is a seat merged with its live status for one showtime.
type SeatState struct {
	Seat
	Status      SeatStatus
	LockedBy    *int
	LockedUntil *time.Time
	BookingID   *int
}

type SeatMap struct {
	Showtime Showtime
	Seats    []SeatState
}

type SeatRepository interface {
	GetShowtime(ctx context.Context, showtimeID int) (*Showtime, error)
	GetSeatMap(ctx context.Context, showtimeID int, now time.Time) (*SeatMap, error)
}
