package domain

import "time"

type EventType string

const (
	EventSeatsLocked   EventType = "seats-locked"
	EventSeatsReleased EventType = "seats-released"
	EventSeatsBooked   EventType = "seats-booked"
)

// SeatEvent is a seat state change scoped to one showtime channel. Origin is
// the connection that caused it, if any.
type SeatEvent struct {
	Type        EventType  `json:"type"`
	ShowtimeID  int        `json:"showtimeId"`
	SeatIDs     []int      `json:"seatIds"`
	LockedBy    *int       `json:"lockedBy,omitempty"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
	BookingID   *int       `json:"bookingId,omitempty"`
	Origin      string     `json:"origin,omitempty"`
}

// Excludable reports whether the originating connection may be skipped.
func (e SeatEvent) Excludable() bool {
	return e.Type == EventSeatsLocked || e.Type == EventSeatsReleased
}
