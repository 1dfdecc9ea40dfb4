// Package realtime fans portfolio updates out to websocket clients.
package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeWait bounds a single write; a client that stops reading is dropped after it.
const writeWait = 10 * time.Second

// client serializes writes to one connection; gorilla connections allow a single writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Hub tracks the connected websocket clients.
type Hub struct {
	logger       *zap.Logger
	writeTimeout time.Duration
	mu           sync.RWMutex
	clients      map[*websocket.Conn]*client
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:       logger.Named("realtime"),
		writeTimeout: writeWait,
		clients:      make(map[*websocket.Conn]*client),
	}
}

// AddClient registers conn for broadcasts.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", count))
}

// RemoveClient unregisters conn and closes it.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("Client disconnected", zap.String("remote", conn.RemoteAddr().String()))
	}
	_ = conn.Close()
}

// Send writes v to a single registered client.
func (h *Hub) Send(conn *websocket.Conn, v any) error {
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	return c.writeJSON(v, h.writeTimeout)
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON writes v to every client, dropping those that fail or time out.
func (h *Hub) BroadcastJSON(v any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(v, h.writeTimeout); err != nil {
			h.logger.Warn("Dropping websocket client", zap.Error(err))
			h.RemoveClient(c.conn)
		}
	}
}
