package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "showtime:"
	channelPattern = channelPrefix + "*"
)

func channelName(showtimeID int) string {
	return channelPrefix + strconv.Itoa(showtimeID)
}

// RedisBroadcaster relays seat events through Redis pub/sub so that every API
// instance delivers the same stream to its own websocket clients.
type RedisBroadcaster struct {
	client redis.UniversalClient
	hub    *Hub
	logger *slog.Logger
}

func NewRedisBroadcaster(client redis.UniversalClient, hub *Hub, logger *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		hub:    hub,
		logger: logger,
	}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	err = b.client.Publish(ctx, channelName(event.ShowtimeID), string(payload)).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channelName(event.ShowtimeID), err)
	}

	return nil
}

// Run subscribes to every showtime channel and hands incoming events to the
// local hub until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", channelPattern, err)
	}

	b.logger.Info("realtime relay subscribed", "pattern", channelPattern)

	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channelPattern)
			}

			b.dispatch(ctx, msg)
		}
	}
}

func (b *RedisBroadcaster) dispatch(ctx context.Context, msg *redis.Message) {
	var event domain.SeatEvent

	err := json.Unmarshal([]byte(msg.Payload), &event)
	if err != nil {
		b.logger.Error("discarding malformed seat event", "channel", msg.Channel, "error", err)
		return
	}

	if event.ShowtimeID == 0 {
		event.ShowtimeID, _ = strconv.Atoi(strings.TrimPrefix(msg.Channel, channelPrefix))
	}

	err = b.hub.Publish(ctx, event)
	if err != nil {
		b.logger.Error("failed to deliver seat event", "channel", msg.Channel, "error", err)
	}
}
