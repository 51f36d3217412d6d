package realtime

import (
	"encoding/json"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
)

const (
	EventConnected = "connected"
	EventJoined    = "joined"
	EventLeft      = "left"
	EventError     = "error"

	ActionJoin  = "join"
	ActionLeave = "leave"
)

// Envelope is the frame every server message is wrapped in.
type Envelope struct {
	Event      string `json:"event"`
	ShowtimeID int    `json:"showtimeId,omitempty"`
	Data       any    `json:"data,omitempty"`
}

type seatEventData struct {
	SeatIDs     []int      `json:"seatIds"`
	LockedBy    *int       `json:"lockedBy,omitempty"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
	BookingID   *int       `json:"bookingId,omitempty"`
}

type connectedData struct {
	ConnectionID string `json:"connectionId"`
}

type errorData struct {
	Message string `json:"message"`
}

type inboundMessage struct {
	Action     string `json:"action"`
	ShowtimeID int    `json:"showtimeId"`
}

func encodeSeatEvent(event domain.SeatEvent) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:      string(event.Type),
		ShowtimeID: event.ShowtimeID,
		Data: seatEventData{
			SeatIDs:     event.SeatIDs,
			LockedBy:    event.LockedBy,
			LockedUntil: event.LockedUntil,
			BookingID:   event.BookingID,
		},
	})
}
