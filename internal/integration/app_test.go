package integration_test

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/app"
	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/metinatakli/seat-reservation/internal/payment"
	"github.com/metinatakli/seat-reservation/internal/realtime"
	"github.com/metinatakli/seat-reservation/internal/repository"
	"github.com/metinatakli/seat-reservation/internal/reservation"
	appvalidator "github.com/metinatakli/seat-reservation/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App            *app.Application
	DB             *pgxpool.Pool
	RedisClient    *redis.Client
	SessionManager *scs.SessionManager
	Hub            *realtime.Hub
	Locks          *reservation.LockManager
	Bookings       *reservation.BookingService
	Sweeper        *reservation.Sweeper
	Events         *eventRecorder
}

// eventRecorder keeps every published seat event and forwards it to the hub.
type eventRecorder struct {
	mu     sync.Mutex
	hub    *realtime.Hub
	events []domain.SeatEvent
}

func (e *eventRecorder) Publish(ctx context.Context, event domain.SeatEvent) error {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()

	return e.hub.Publish(ctx, event)
}

func (e *eventRecorder) Events() []domain.SeatEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]domain.SeatEvent(nil), e.events...)
}

func (e *eventRecorder) Reset() {
	e.mu.Lock()
	e.events = nil
	e.mu.Unlock()
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	validator := appvalidator.NewValidator()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	seatRepo := repository.NewPostgresSeatRepository(db)
	lockRepo := repository.NewPostgresLockRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)

	paymentProvider := payment.NewMockPaymentProvider(cfg.Stripe.SuccessUrl)
	webhookParser := payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl, cfg.Stripe.WebhookSecret)

	var locks *reservation.LockManager

	hub := realtime.NewHub(realtime.DefaultHubConfig(), logger, func(userID int) {
		_, err := locks.ReleaseAll(context.Background(), userID)
		if err != nil {
			logger.Error("failed to release seats on disconnect", "user_id", userID, "error", err)
		}
	})
	events := &eventRecorder{hub: hub}

	locks = reservation.NewLockManager(lockRepo, seatRepo, events, logger, cfg.Reservation.LockTTL)
	bookings := reservation.NewBookingService(
		bookingRepo,
		paymentRepo,
		lockRepo,
		paymentProvider,
		events,
		logger,
		cfg.Reservation.StalePendingAfter,
	)
	sweeper := reservation.NewSweeper(lockRepo, bookings, events, logger, cfg.Reservation.SweepInterval)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		sessionManager,
		app.Dependencies{
			SeatRepo:      seatRepo,
			Locks:         locks,
			Bookings:      bookings,
			WebhookParser: webhookParser,
			Hub:           hub,
		},
	)

	return &TestApp{
		App:            application,
		DB:             db,
		RedisClient:    redisClient,
		SessionManager: sessionManager,
		Hub:            hub,
		Locks:          locks,
		Bookings:       bookings,
		Sweeper:        sweeper,
		Events:         events,
	}, nil
}
