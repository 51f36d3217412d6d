package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/metinatakli/seat-reservation/internal/payment"
	"github.com/metinatakli/seat-reservation/internal/realtime"
	appvalidator "github.com/metinatakli/seat-reservation/internal/validator"
	"github.com/metinatakli/seat-reservation/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	version = vcs.Version()
)

type seatLocker interface {
	Acquire(ctx context.Context, showtimeID int, seatIDs []int, holder domain.Holder) ([]domain.SeatLock, error)
	Release(ctx context.Context, showtimeID int, seatIDs []int, holder domain.Holder) ([]int, error)
	ReleaseAll(ctx context.Context, userID int) ([]domain.SeatLock, error)
}

type bookingManager interface {
	Create(ctx context.Context, input domain.BookingRequest) (*domain.BookingDetail, error)
	Get(ctx context.Context, bookingID, userID int) (*domain.BookingDetail, error)
	List(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error)
	Cancel(ctx context.Context, bookingID, userID int) (*domain.Booking, error)
	Confirm(ctx context.Context, bookingID, userID int) (*domain.Booking, error)
	StartCheckout(ctx context.Context, bookingID, userID int) (*domain.CheckoutSession, error)
	Settle(ctx context.Context, outcome domain.PaymentOutcome) (*domain.Booking, error)
}

type webhookParser interface {
	ParseWebhook(payload []byte, signature string) (*domain.PaymentOutcome, error)
}

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	seatRepo domain.SeatRepository

	locks         seatLocker
	bookings      bookingManager
	webhookParser webhookParser

	hub      *realtime.Hub
	upgrader *websocket.Upgrader

	workers []func(ctx context.Context)
}

// Dependencies groups what NewApp wires into the HTTP layer.
type Dependencies struct {
	SeatRepo      domain.SeatRepository
	Locks         seatLocker
	Bookings      bookingManager
	WebhookParser webhookParser
	Hub           *realtime.Hub
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redis redis.UniversalClient,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	deps Dependencies) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redis,
		validator:      validator,
		sessionManager: sessionManager,
		seatRepo:       deps.SeatRepo,
		locks:          deps.Locks,
		bookings:       deps.Bookings,
		webhookParser:  deps.WebhookParser,
		hub:            deps.Hub,
		upgrader:       realtime.NewUpgrader(cfg.Websocket.AllowedOrigins),
	}
}

// AddWorker registers a background loop that runs for the lifetime of Serve.
func (app *Application) AddWorker(worker func(ctx context.Context)) {
	app.workers = append(app.workers, worker)
}

func Run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	if cfg.DisplayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.Stripe.SecretKey

	textHandler := slog.NewTextHandler(os.Stdout, nil)
	logger := slog.New(textHandler)

	bootstrap := &Application{config: cfg, logger: logger}

	shutdownTelemetry, err := bootstrap.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(newFanoutHandler(textHandler, otelslog.NewHandler(serviceName)))
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	app, err := Wire(cfg, logger, db, redisClient)
	if err != nil {
		return err
	}

	return app.Serve()
}

// Wire builds the application and its background workers on top of live
// Postgres and Redis connections.
func Wire(cfg Config, logger *slog.Logger, db *pgxpool.Pool, redisClient *redis.Client) (*Application, error) {
	c := newContainer(cfg, logger, db, redisClient)

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		NewSessionManager(redisClient),
		c.dependencies(),
	)

	app.AddWorker(func(ctx context.Context) { runRelay(ctx, c.relay, logger) })
	app.AddWorker(c.sweeper.Run)

	if cfg.AMQP.URL != "" {
		consumer := payment.NewConsumer(payment.ConsumerConfig{
			URL:      cfg.AMQP.URL,
			Queue:    cfg.AMQP.Queue,
			Prefetch: cfg.AMQP.Prefetch,
		}, c.bookings, logger)

		app.AddWorker(func(ctx context.Context) {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("payment consumer exited", "error", err)
			}
		})
	}

	return app, nil
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Serve runs the HTTP server and the background workers until SIGINT or
// SIGTERM, then drains both.
func (app *Application) Serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	for _, worker := range app.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(workerCtx)
		}()
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
			return
		}

		stopWorkers()
		wg.Wait()

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

// runRelay keeps the Redis subscription alive; a dropped subscription is
// re-established after a short pause.
func runRelay(ctx context.Context, relay *realtime.RedisBroadcaster, logger *slog.Logger) {
	for {
		err := relay.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		logger.Error("realtime relay stopped, resubscribing", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
