// Package stream fans engine events out to websocket clients: candles,
// fills, activity entries, and wallet snapshots.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the wire envelope sent to clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub broadcasts messages to all connected websocket clients. Slow or
// dead clients are dropped rather than allowed to stall the tick loop.
type Hub struct {
	logger    *zap.Logger
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
}

// NewHub creates a hub. Call Run before broadcasting.
func NewHub(logger ...*zap.Logger) *Hub {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Hub{
		logger:    l,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to clients until Stop. Runs on its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
					h.logger.Debug("dropped websocket client", zap.Error(err))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop disconnects all clients and ends the pump.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

// Broadcast sends a typed message to every client. It never blocks: if
// the pump is saturated the message is dropped.
func (h *Hub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("failed to encode broadcast", zap.String("type", msgType), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Debug("broadcast buffer full, dropping message",
			zap.String("type", msgType))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request and registers the client. Reads are
// drained and discarded; the stream is one-way.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Info("websocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				if _, ok := h.clients[conn]; ok {
					conn.Close()
					delete(h.clients, conn)
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}
