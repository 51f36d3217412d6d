package app

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/metinatakli/seat-reservation/internal/payment"
	"github.com/metinatakli/seat-reservation/internal/reservation"
)

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessUrl    string
	FailureUrl    string
}

type AMQPConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

type ReservationConfig struct {
	LockTTL           time.Duration
	SweepInterval     time.Duration
	StalePendingAfter time.Duration
}

type WebsocketConfig struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	AllowedOrigins []string
}

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	Stripe           StripeConfig
	AMQP             AMQPConfig
	Reservation      ReservationConfig
	Websocket        WebsocketConfig
	OtelCollectorUrl string
	DisplayVersion   bool
}

// LoadConfig reads the command line flags. Every flag defaults to an
// environment variable, and a .env file in the working directory, when
// present, is loaded into the environment first.
func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(flags *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	var allowedOrigins string

	flags.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	flags.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")

	flags.StringVar(&cfg.DB.DSN, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	flags.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	flags.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDuration("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")

	flags.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	flags.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	flags.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	flags.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDuration("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")

	flags.StringVar(&cfg.Stripe.SecretKey, "stripe-key", envString("STRIPE_KEY", ""), "Stripe secret key")
	flags.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", envString("STRIPE_WEBHOOK_SECRET", ""), "Stripe webhook secret")
	flags.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", envString("STRIPE_SUCCESS_URL", "https://example.com/success.html"), "Stripe payment success page")
	flags.StringVar(&cfg.Stripe.FailureUrl, "stripe-failure-url", envString("STRIPE_FAILURE_URL", "https://example.com/failure.html"), "Stripe payment failure page")

	flags.StringVar(&cfg.AMQP.URL, "amqp-url", envString("AMQP_URL", ""), "AMQP broker URL for payment outcomes (disabled when empty)")
	flags.StringVar(&cfg.AMQP.Queue, "amqp-queue", envString("AMQP_QUEUE", payment.DefaultQueue), "AMQP queue carrying payment outcomes")
	flags.IntVar(&cfg.AMQP.Prefetch, "amqp-prefetch", envInt("AMQP_PREFETCH", payment.DefaultPrefetch), "AMQP consumer prefetch count")

	flags.DurationVar(&cfg.Reservation.LockTTL, "lock-ttl", envDuration("LOCK_TTL", reservation.DefaultLockTTL), "How long a seat lock is held")
	flags.DurationVar(&cfg.Reservation.SweepInterval, "sweep-interval", envDuration("SWEEP_INTERVAL", reservation.DefaultSweepInterval), "Interval between expired lock sweeps")
	flags.DurationVar(&cfg.Reservation.StalePendingAfter, "stale-pending-after", envDuration("STALE_PENDING_AFTER", reservation.DefaultStalePendingAfter), "Age after which unpaid pending bookings are cancelled")

	flags.IntVar(&cfg.Websocket.SendBuffer, "ws-send-buffer", envInt("WS_SEND_BUFFER", 64), "Queued messages per websocket client before it is dropped")
	flags.DurationVar(&cfg.Websocket.WriteWait, "ws-write-wait", envDuration("WS_WRITE_WAIT", 10*time.Second), "Websocket write deadline")
	flags.DurationVar(&cfg.Websocket.PongWait, "ws-pong-wait", envDuration("WS_PONG_WAIT", 60*time.Second), "Websocket keepalive timeout")
	flags.StringVar(&allowedOrigins, "ws-allowed-origins", envString("WS_ALLOWED_ORIGINS", ""), "Comma separated origins allowed to open websockets")

	flags.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	flags.BoolVar(&cfg.DisplayVersion, "version", false, "Display version and exit")

	err := flags.Parse(args)
	if err != nil {
		return Config{}, err
	}

	cfg.Websocket.AllowedOrigins = splitList(allowedOrigins)

	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return v
}

func splitList(s string) []string {
	var items []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
