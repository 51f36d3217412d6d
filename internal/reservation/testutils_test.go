package reservation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/metinatakli/seat-reservation/internal/mocks"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return fixedNow
}

// recordEvents captures every published event in publish order.
func recordEvents(publisher *mocks.MockPublisher) *[]domain.SeatEvent {
	events := &[]domain.SeatEvent{}

	publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*events = append(*events, args.Get(1).(domain.SeatEvent))
		}).
		Return(nil)

	return events
}

var ctx = context.Background()

func ptr[T any](v T) *T {
	return &v
}
