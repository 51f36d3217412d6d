package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/metinatakli/seat-reservation/internal/payment"
	"github.com/metinatakli/seat-reservation/internal/realtime"
	"github.com/metinatakli/seat-reservation/internal/repository"
	"github.com/metinatakli/seat-reservation/internal/reservation"
	"github.com/redis/go-redis/v9"
)

// container holds the reservation core wired to its stores.
type container struct {
	seatRepo domain.SeatRepository
	hub      *realtime.Hub
	relay    *realtime.RedisBroadcaster
	locks    *reservation.LockManager
	bookings *reservation.BookingService
	sweeper  *reservation.Sweeper
	stripe   *payment.StripePaymentProvider
}

func newContainer(cfg Config, logger *slog.Logger, db *pgxpool.Pool, redisClient redis.UniversalClient) *container {
	c := &container{}

	c.seatRepo = repository.NewPostgresSeatRepository(db)
	lockRepo := repository.NewPostgresLockRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)

	c.hub = realtime.NewHub(realtime.HubConfig{
		SendBuffer: cfg.Websocket.SendBuffer,
		WriteWait:  cfg.Websocket.WriteWait,
		PongWait:   cfg.Websocket.PongWait,
	}, logger, func(userID int) {
		c.releaseOnDisconnect(logger, userID)
	})

	c.relay = realtime.NewRedisBroadcaster(redisClient, c.hub, logger)

	c.stripe = payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl, cfg.Stripe.WebhookSecret)

	var provider domain.PaymentProvider = c.stripe
	if cfg.Stripe.SecretKey == "" {
		logger.Warn("stripe secret key not set, using mock payment provider")
		provider = payment.NewMockPaymentProvider(cfg.Stripe.SuccessUrl)
	}

	c.locks = reservation.NewLockManager(lockRepo, c.seatRepo, c.relay, logger, cfg.Reservation.LockTTL)

	c.bookings = reservation.NewBookingService(
		bookingRepo,
		paymentRepo,
		lockRepo,
		provider,
		c.relay,
		logger,
		cfg.Reservation.StalePendingAfter,
	)

	c.sweeper = reservation.NewSweeper(lockRepo, c.bookings, c.relay, logger, cfg.Reservation.SweepInterval)

	return c
}

func (c *container) dependencies() Dependencies {
	return Dependencies{
		SeatRepo:      c.seatRepo,
		Locks:         c.locks,
		Bookings:      c.bookings,
		WebhookParser: c.stripe,
		Hub:           c.hub,
	}
}

// releaseOnDisconnect frees the seats of a user whose last realtime
// connection closed.
func (c *container) releaseOnDisconnect(logger *slog.Logger, userID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.locks.ReleaseAll(ctx, userID)
	if err != nil {
		logger.Error("failed to release seats on disconnect", "user_id", userID, "error", err)
	}
}
