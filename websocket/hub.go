package websocket

import (
	"sync"
	"time"

	"codegalaxy/internal/logger"
	"codegalaxy/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

// ActivityClient is one connected activity-feed socket
type ActivityClient struct {
	Conn    *websocket.Conn
	UserID  string
	send    chan interface{}
	writeMu sync.Mutex
}

func NewActivityClient(conn *websocket.Conn, userID string) *ActivityClient {
	return &ActivityClient{Conn: conn, UserID: userID, send: make(chan interface{}, sendBuffer)}
}

// SafeWriteJSON serializes writes to the client's connection. A write that
// cannot finish within writeWait fails.
func (ac *ActivityClient) SafeWriteJSON(v interface{}) error {
	ac.writeMu.Lock()
	defer ac.writeMu.Unlock()
	if err := ac.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ac.Conn.WriteJSON(v)
}

// enqueue queues v for the writer and reports false when the queue is full.
func (ac *ActivityClient) enqueue(v interface{}) bool {
	select {
	case ac.send <- v:
		return true
	default:
		return false
	}
}

// writePump delivers queued events until the hub closes the queue. A failed
// write closes the connection so the reader side unregisters the client.
func (ac *ActivityClient) writePump() {
	for msg := range ac.send {
		if err := ac.SafeWriteJSON(msg); err != nil {
			ac.Conn.Close()
			for range ac.send {
			}
			return
		}
	}
}

// Hub fans activity events out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*ActivityClient]bool
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*ActivityClient]bool), log: logger.OrNop(log)}
}

// Register adds the client and starts its writer.
func (h *Hub) Register(client *ActivityClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	go client.writePump()
	h.log.Debug("activity client registered", zap.String("user_id", client.UserID), zap.Int("clients", len(h.clients)))
}

// Unregister removes the client and closes its connection. Unknown clients
// are ignored.
func (h *Hub) Unregister(client *ActivityClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	client.Conn.Close()
	h.log.Debug("activity client unregistered", zap.String("user_id", client.UserID), zap.Int("clients", len(h.clients)))
}

// Publish queues event for every client without blocking. Clients whose
// queue is full are dropped.
func (h *Hub) Publish(event models.ActivityEvent) {
	h.mu.RLock()
	var slow []*ActivityClient
	for client := range h.clients {
		if !client.enqueue(event) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("activity client too slow, dropping", zap.String("user_id", client.UserID))
		h.Unregister(client)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
