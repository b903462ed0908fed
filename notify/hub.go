package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Hub pushes events to the websocket connections of their recipients
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[primitive.ObjectID]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// NewHub creates an empty hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[primitive.ObjectID]map[*client]struct{}),
	}
}

// Name implements Sink
func (h *Hub) Name() string { return "websocket" }

// Serve upgrades the request and keeps the connection registered for user until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user primitive.ObjectID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}
	h.add(user, c)
	zap.S().Debugw("notification socket connected", "user", user.Hex())

	defer func() {
		h.remove(user, c)
		_ = conn.Close()
		zap.S().Debugw("notification socket disconnected", "user", user.Hex())
	}()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// Connections is the number of open sockets for user
func (h *Hub) Connections(user primitive.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[user])
}

// Deliver implements Sink. Sockets that fail to write are dropped.
func (h *Hub) Deliver(ctx context.Context, e Event) error {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients[e.Recipient]))
	for c := range h.clients[e.Recipient] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	msg := map[string]interface{}{"event": e.Type, "data": e}
	for _, c := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.writeJSON(msg); err != nil {
			zap.S().Warnw("dropping notification socket", "user", e.Recipient.Hex(), "error", err)
			h.remove(e.Recipient, c)
			_ = c.conn.Close()
		}
	}
	return nil
}

func (h *Hub) add(user primitive.ObjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[user] == nil {
		h.clients[user] = make(map[*client]struct{})
	}
	h.clients[user][c] = struct{}{}
}

func (h *Hub) remove(user primitive.ObjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[user], c)
	if len(h.clients[user]) == 0 {
		delete(h.clients, user)
	}
}
