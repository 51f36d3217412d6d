package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/metinatakli/seat-reservation/internal/realtime"

type HubConfig struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64

	// Meter defaults to the global meter provider.
	Meter metric.Meter
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:     64,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 512,
	}
}

// Hub keeps the showtime channels of this instance and fans seat events out
// to their subscribers. A subscriber whose queue is full is dropped rather
// than slowing the broadcast down.
//
// Connection counts are per instance. Behind several replicas a user's last
// disconnect from one instance releases their locks even if another instance
// still holds a connection for them; the cross-instance fan-out in redis.go
// carries events only.
type Hub struct {
	mu        sync.Mutex
	clients   map[*Client]struct{}
	channels  map[int]map[*Client]struct{}
	userConns map[int]int

	config           HubConfig
	logger           *slog.Logger
	onLastDisconnect func(userID int)

	connections metric.Int64UpDownCounter
	dropped     metric.Int64Counter
}

// NewHub creates a hub. onLastDisconnect, if set, is called in its own
// goroutine when the last connection of a user goes away.
func NewHub(config HubConfig, logger *slog.Logger, onLastDisconnect func(userID int)) *Hub {
	defaults := DefaultHubConfig()
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.Meter == nil {
		config.Meter = otel.Meter(instrumentationName)
	}

	connections, err := config.Meter.Int64UpDownCounter("realtime.connections",
		metric.WithDescription("Open realtime connections on this instance"))
	if err != nil {
		connections = noop.Int64UpDownCounter{}
	}

	dropped, err := config.Meter.Int64Counter("realtime.clients.dropped",
		metric.WithDescription("Realtime clients dropped for falling behind the broadcast"))
	if err != nil {
		dropped = noop.Int64Counter{}
	}

	return &Hub{
		clients:          make(map[*Client]struct{}),
		channels:         make(map[int]map[*Client]struct{}),
		userConns:        make(map[int]int),
		config:           config,
		logger:           logger,
		onLastDisconnect: onLastDisconnect,
		connections:      connections,
		dropped:          dropped,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		return
	}

	h.clients[c] = struct{}{}
	h.userConns[c.userID]++
	h.connections.Add(context.Background(), 1)
}

// Subscribe adds the client to the showtime channel. It is a no-op for a
// client that was already removed.
func (h *Hub) Subscribe(c *Client, showtimeID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	subscribers, ok := h.channels[showtimeID]
	if !ok {
		subscribers = make(map[*Client]struct{})
		h.channels[showtimeID] = subscribers
	}

	subscribers[c] = struct{}{}
	c.showtimes[showtimeID] = struct{}{}
}

func (h *Hub) Unsubscribe(c *Client, showtimeID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribe(c, showtimeID)
}

func (h *Hub) unsubscribe(c *Client, showtimeID int) {
	delete(c.showtimes, showtimeID)

	subscribers, ok := h.channels[showtimeID]
	if !ok {
		return
	}

	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.channels, showtimeID)
	}
}

// Remove detaches the client from every channel and closes it. Removing a
// client twice is harmless.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()

	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}

	for showtimeID := range c.showtimes {
		h.unsubscribe(c, showtimeID)
	}

	delete(h.clients, c)
	h.connections.Add(context.Background(), -1)

	h.userConns[c.userID]--
	last := h.userConns[c.userID] <= 0
	if last {
		delete(h.userConns, c.userID)
	}

	h.mu.Unlock()

	c.Close()

	if last && h.onLastDisconnect != nil {
		go h.onLastDisconnect(c.userID)
	}
}

// Publish delivers the event to every subscriber of its showtime. Lock and
// release events skip the connection they originated from.
func (h *Hub) Publish(ctx context.Context, event domain.SeatEvent) error {
	msg, err := encodeSeatEvent(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	var slow []*Client

	h.mu.Lock()
	for c := range h.channels[event.ShowtimeID] {
		if event.Excludable() && event.Origin != "" && c.id == event.Origin {
			continue
		}

		if !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.dropped.Add(ctx, 1)
		h.logger.Warn("dropping slow realtime client",
			"connection_id", c.id,
			"user_id", c.userID,
			"showtime_id", event.ShowtimeID)

		h.Remove(c)
	}

	return nil
}

func (h *Hub) Subscribers(showtimeID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.channels[showtimeID])
}

func (h *Hub) Connections(userID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.userConns[userID]
}
