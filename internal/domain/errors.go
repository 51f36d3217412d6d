package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrSeatConflict      = errors.New("one or more seats are unavailable")
	ErrAlreadyBooked     = errors.New("one or more seats are already booked")
	ErrNotLocked         = errors.New("your selections have expired, please select your seats again")
	ErrInvalidTransition = errors.New("booking status does not allow this operation")
	ErrTransientStore    = errors.New("seat store temporarily unavailable")
	ErrNoSeatsSelected   = errors.New("at least one seat must be selected")
	ErrInvalidAmount     = errors.New("total amount must not be negative")
)

// SeatConflictError names the seats that blocked a lock request. It matches
// ErrSeatConflict, and ErrAlreadyBooked as well when a blocking seat is
// permanently taken.
type SeatConflictError struct {
	SeatIDs []int
	Booked  bool
}

func (e *SeatConflictError) Error() string {
	if e.Booked {
		return fmt.Sprintf("seats %v are already booked", e.SeatIDs)
	}

	return fmt.Sprintf("seats %v are locked by another user", e.SeatIDs)
}

func (e *SeatConflictError) Is(target error) bool {
	switch target {
	case ErrSeatConflict:
		return true
	case ErrAlreadyBooked:
		return e.Booked
	default:
		return false
	}
}

// ConflictingSeats returns the blocking seat ids carried by err, if any.
func ConflictingSeats(err error) []int {
	var conflictErr *SeatConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.SeatIDs
	}

	return nil
}

// IsTerminal reports whether retrying the operation that returned err can
// never succeed.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrSeatConflict) ||
		errors.Is(err, ErrNotLocked)
}
