package devserver

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/fluxbase-eu/jsbundle/internal/observability"
)

// ReloadMessage is the text frame sent to browsers after a successful rebuild
const ReloadMessage = "reload"

// client is the subset of *websocket.Conn the hub writes to
type client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// connection wraps a client so that concurrent writes are serialised
type connection struct {
	id     string
	client client
	mu     sync.Mutex
}

func (c *connection) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connected live reload clients
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *observability.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*connection),
		metrics:     metrics,
		logger:      logger,
	}
}

// Add registers a client under id
func (h *Hub) Add(id string, c client) {
	h.mu.Lock()
	h.connections[id] = &connection{id: id, client: c}
	h.mu.Unlock()

	h.updateMetrics()
	h.logger.Debug().Str("connection_id", id).Msg("Live reload client connected")
}

// Remove unregisters and closes the client with id
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	conn, exists := h.connections[id]
	if !exists {
		h.mu.Unlock()
		return
	}
	delete(h.connections, id)
	h.mu.Unlock()

	_ = conn.client.Close()
	h.updateMetrics()
	h.logger.Debug().Str("connection_id", id).Msg("Live reload client disconnected")
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast sends message to every client and returns how many received it.
// Clients that fail to receive are dropped.
func (h *Hub) Broadcast(message string) int {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.send([]byte(message)); err != nil {
			h.logger.Debug().Err(err).Str("connection_id", conn.id).Msg("Dropping live reload client")
			h.Remove(conn.id)
			continue
		}
		delivered++
		if h.metrics != nil {
			h.metrics.RecordReloadSent()
		}
	}
	return delivered
}

// CloseAll disconnects every client
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Remove(id)
	}
}

func (h *Hub) updateMetrics() {
	if h.metrics != nil {
		h.metrics.SetLiveReloadClients(h.Count())
	}
}
