package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"go.opentelemetry.io/otel/metric"
)

const DefaultSweepInterval = 60 * time.Second

type staleBookingCanceller interface {
	CancelStalePending(ctx context.Context) ([]domain.Booking, error)
}

// Sweeper periodically deletes expired seat locks and announces the freed
// seats. A sweep that fails is retried on the next tick.
type Sweeper struct {
	locks     domain.LockRepository
	bookings  staleBookingCanceller
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	now       clock

	expired  metric.Int64Counter
	duration metric.Float64Histogram
}

func NewSweeper(
	locks domain.LockRepository,
	bookings staleBookingCanceller,
	publisher Publisher,
	logger *slog.Logger,
	interval time.Duration) *Sweeper {

	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		locks:     locks,
		bookings:  bookings,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		expired:   newCounter("reservation.locks.expired", "Expired seat locks removed by the sweeper"),
		duration:  newHistogram("reservation.sweep.duration", "Time spent in one sweep", "s"),
	}
}

// Run sweeps once right away and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval)

	for {
		err := s.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep removes all expired locks in one batch and emits one seats-released
// event per affected showtime. The delete hands each expired row to exactly
// one caller, so concurrent sweeps never announce the same seat twice.
func (s *Sweeper) Sweep(ctx context.Context) error {
	started := time.Now()
	defer func() {
		s.duration.Record(ctx, time.Since(started).Seconds())
	}()

	var errs []error

	expired, err := s.locks.DeleteExpiredLocks(ctx, s.now())
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired locks: %w", err))
	} else if len(expired) > 0 {
		s.expired.Add(ctx, int64(len(expired)))
		s.logger.Info("expired seat locks removed", "count", len(expired))

		publishReleasedLocks(ctx, s.publisher, s.logger, expired, "")
	}

	if s.bookings != nil {
		_, err = s.bookings.CancelStalePending(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
