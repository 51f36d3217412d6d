package reservation

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/metinatakli/seat-reservation/internal/reservation"

// Publisher delivers seat events to the subscribers of a showtime channel.
type Publisher interface {
	Publish(ctx context.Context, event domain.SeatEvent) error
}

type clock func() time.Time

func newCounter(name, description string) metric.Int64Counter {
	counter, err := otel.Meter(instrumentationName).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}

	return counter
}

func newHistogram(name, description, unit string) metric.Float64Histogram {
	histogram, err := otel.Meter(instrumentationName).Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit(unit))
	if err != nil {
		return noop.Float64Histogram{}
	}

	return histogram
}

// normalizeSeatIds returns the distinct seat ids in ascending order. Every
// writer takes row locks in this order.
func normalizeSeatIds(seatIDs []int) []int {
	ids := slices.Clone(seatIDs)
	slices.Sort(ids)

	return slices.Compact(ids)
}

// publish never fails the caller: the state change is already committed and
// clients reconcile from the seat map on reconnect.
func publish(ctx context.Context, publisher Publisher, logger *slog.Logger, event domain.SeatEvent) {
	err := publisher.Publish(ctx, event)
	if err != nil {
		logger.Error("failed to publish seat event",
			"event", event.Type,
			"showtime_id", event.ShowtimeID,
			"seat_ids", event.SeatIDs,
			"error", err)
	}
}

func publishReleased(
	ctx context.Context,
	publisher Publisher,
	logger *slog.Logger,
	showtimeID int,
	seatIDs []int,
	origin string) {

	if len(seatIDs) == 0 {
		return
	}

	publish(ctx, publisher, logger, domain.SeatEvent{
		Type:       domain.EventSeatsReleased,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Origin:     origin,
	})
}

// publishReleasedLocks emits one seats-released event per showtime, in
// showtime order.
func publishReleasedLocks(
	ctx context.Context,
	publisher Publisher,
	logger *slog.Logger,
	locks []domain.SeatLock,
	origin string) {

	groups := domain.GroupByShowtime(locks)

	showtimeIDs := make([]int, 0, len(groups))
	for showtimeID := range groups {
		showtimeIDs = append(showtimeIDs, showtimeID)
	}
	slices.Sort(showtimeIDs)

	for _, showtimeID := range showtimeIDs {
		seatIDs := groups[showtimeID]
		slices.Sort(seatIDs)

		publishReleased(ctx, publisher, logger, showtimeID, seatIDs, origin)
	}
}
