package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one realtime connection. Its showtimes set is guarded by the
// hub's mutex.
type Client struct {
	id     string
	userID int
	hub    *Hub
	conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	showtimes map[int]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID int) *Client {
	return &Client{
		id:        uuid.New().String(),
		userID:    userID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, hub.config.SendBuffer),
		done:      make(chan struct{}),
		showtimes: make(map[int]struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() int {
	return c.userID
}

// Close stops the write pump, which closes the underlying connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue never blocks. It reports false when the client cannot keep up.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) sendEnvelope(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		c.hub.logger.Error("failed to encode realtime message", "event", env.Event, "error", err)
		return
	}

	if !c.enqueue(msg) {
		c.hub.Remove(c)
	}
}

// Serve registers a websocket connection and pumps it until the peer goes
// away. It blocks for the lifetime of the connection.
func (h *Hub) Serve(conn *websocket.Conn, userID int) {
	c := newClient(h, conn, userID)

	h.Register(c)
	h.logger.Info("realtime client connected", "connection_id", c.id, "user_id", userID)

	c.sendEnvelope(Envelope{
		Event: EventConnected,
		Data:  connectedData{ConnectionID: c.id},
	})

	go c.writePump()
	c.readPump()

	h.Remove(c)
	h.logger.Info("realtime client disconnected", "connection_id", c.id, "user_id", userID)
}

func (c *Client) readPump() {
	cfg := c.hub.config

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("realtime connection closed unexpectedly", "connection_id", c.id, "error", err)
			}
			return
		}

		c.handle(payload)
	}
}

func (c *Client) handle(payload []byte) {
	var msg inboundMessage

	err := json.Unmarshal(payload, &msg)
	if err != nil {
		c.sendEnvelope(Envelope{Event: EventError, Data: errorData{Message: "malformed message"}})
		return
	}

	err = c.apply(msg)
	if err != nil {
		c.sendEnvelope(Envelope{Event: EventError, ShowtimeID: msg.ShowtimeID, Data: errorData{Message: err.Error()}})
	}
}

func (c *Client) apply(msg inboundMessage) error {
	if msg.ShowtimeID < 1 {
		return errors.New("showtimeId must be greater than zero")
	}

	switch msg.Action {
	case ActionJoin:
		c.hub.Subscribe(c, msg.ShowtimeID)
		c.sendEnvelope(Envelope{Event: EventJoined, ShowtimeID: msg.ShowtimeID})
	case ActionLeave:
		c.hub.Unsubscribe(c, msg.ShowtimeID)
		c.sendEnvelope(Envelope{Event: EventLeft, ShowtimeID: msg.ShowtimeID})
	default:
		return errors.New("unknown action")
	}

	return nil
}

func (c *Client) writePump() {
	cfg := c.hub.config
	pingPeriod := cfg.PongWait * 9 / 10

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))

			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))

			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait),
			)
			return
		}
	}
}
