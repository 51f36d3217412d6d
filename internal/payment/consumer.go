package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultQueue    = "payment.events"
	DefaultPrefetch = 20

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Settler applies a payment outcome to its booking.
type Settler interface {
	Settle(ctx context.Context, outcome domain.PaymentOutcome) (*domain.Booking, error)
}

type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// Consumer reads payment outcomes from a durable AMQP queue. Outcomes that
// failed on a transient store error are requeued; everything else is
// acknowledged or dead lettered exactly once.
type Consumer struct {
	config  ConsumerConfig
	settler Settler
	logger  *slog.Logger
}

func NewConsumer(config ConsumerConfig, settler Settler, logger *slog.Logger) *Consumer {
	if config.Queue == "" {
		config.Queue = DefaultQueue
	}
	if config.Prefetch <= 0 {
		config.Prefetch = DefaultPrefetch
	}

	return &Consumer{
		config:  config,
		settler: settler,
		logger:  logger,
	}
}

// Run keeps a consumer attached to the broker, reconnecting with exponential
// backoff, until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		conn, err := amqp.Dial(c.config.URL)
		if err != nil {
			c.logger.Error("payment consumer failed to dial broker", "error", err, "retry_in", backoff)

			if !sleep(ctx, backoff) {
				return nil
			}

			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		c.logger.Info("payment consumer connected", "queue", c.config.Queue)

		err = c.consume(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			c.logger.Info("payment consumer stopped")
			return nil
		}

		c.logger.Warn("payment consumer loop ended, reconnecting", "error", err)

		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	err = ch.Qos(c.config.Prefetch, 0, false)
	if err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	_, err = ch.QueueDeclare(c.config.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}

			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	logger := c.logger.With("delivery_tag", d.DeliveryTag, "message_id", d.MessageId)

	var outcome domain.PaymentOutcome

	err := json.Unmarshal(d.Body, &outcome)
	if err != nil || !validOutcome(outcome) {
		logger.Error("rejecting malformed payment outcome", "error", err, "body", string(d.Body))
		c.settle(logger, d.Nack(false, false))
		return
	}

	logger = logger.With("booking_id", outcome.BookingID, "outcome", outcome.Outcome)

	_, err = c.settler.Settle(ctx, outcome)

	switch {
	case err == nil:
		c.settle(logger, d.Ack(false))

	case domain.IsTerminal(err):
		logger.Warn("payment outcome cannot be applied", "error", err)
		c.settle(logger, d.Ack(false))

	case errors.Is(err, domain.ErrTransientStore):
		logger.Warn("payment outcome deferred, requeueing", "error", err)
		c.settle(logger, d.Nack(false, true))

	default:
		// Unknown failures get one redelivery before being dead lettered.
		logger.Error("failed to apply payment outcome", "error", err, "redelivered", d.Redelivered)
		c.settle(logger, d.Nack(false, !d.Redelivered))
	}
}

func (c *Consumer) settle(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("failed to acknowledge delivery", "error", err)
	}
}

func validOutcome(outcome domain.PaymentOutcome) bool {
	if outcome.BookingID < 1 {
		return false
	}

	switch outcome.Outcome {
	case domain.PaymentSucceeded, domain.PaymentRefunded:
		return outcome.GatewayReference != ""
	case domain.PaymentFailed:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
