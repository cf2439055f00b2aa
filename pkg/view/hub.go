package view

import (
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan Frame
}

// Hub fans frames out to websocket clients. A client that cannot keep up
// misses frames rather than slowing the others down.
type Hub struct {
	logger   golog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

func NewHub(logger golog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[uuid.UUID]*client{},
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade", "error", err)
		return
	}
	c := &client{id: uuid.New(), conn: conn, send: make(chan Frame, 4)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Infow("viewer connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	// reads only detect the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writeLoop(c *client) {
	for f := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(f); err != nil {
			h.logger.Debugw("viewer write", "client", c.id, "error", err)
			c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.conn.Close()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Infow("viewer disconnected", "client", c.id)
}

// Broadcast queues f for every client and reports how many took it.
func (h *Hub) Broadcast(f Frame) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var sent int
	for _, c := range h.clients {
		select {
		case c.send <- f:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
