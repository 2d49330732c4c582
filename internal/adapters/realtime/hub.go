package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"eventhub/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the frame written to every connected client.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub tracks open websocket connections and broadcasts attendee updates to all of them.
// It implements domain.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	logger  *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Publish queues the update for every client. Clients whose buffer is full miss it.
func (h *Hub) Publish(ctx context.Context, update domain.AttendeeUpdate) {
	msg, err := json.Marshal(Message{Event: domain.EventUpdateName, Payload: update})
	if err != nil {
		h.logger.Error("failed to encode realtime message", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dropping realtime update for slow client", "user_id", c.userID, "event_id", update.EventID)
		}
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers conn for identity and blocks until the connection is closed, the
// session token expires or the hub shuts down. Inbound messages are discarded.
func (h *Hub) Serve(conn *websocket.Conn, identity *domain.Identity) {
	c := &client{
		conn:   conn,
		userID: identity.UserID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	if !h.register(c) {
		c.close()
		return
	}
	defer h.unregister(c)

	if !identity.ExpiresAt.IsZero() {
		timer := time.AfterFunc(time.Until(identity.ExpiresAt), c.close)
		defer timer.Stop()
	}

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("realtime client connected", "user_id", c.userID, "clients", len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("realtime client disconnected", "user_id", c.userID, "clients", n)
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime read error", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
