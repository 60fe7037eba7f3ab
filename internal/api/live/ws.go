package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is what a websocket client receives. Features is only set when
// the feature set or a feature style changed.
type Message struct {
	Type     string                     `json:"type"`
	Snapshot service.Snapshot           `json:"snapshot"`
	Features *geojson.FeatureCollection `json:"features,omitempty"`
}

// Hub fans map changes out to websocket clients.
type Hub struct {
	ctrl    *service.MapController
	log     logger.Logger
	metrics *metrics.Manager

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a hub for ctrl.
func NewHub(ctrl *service.MapController, m *metrics.Manager) *Hub {
	return &Hub{
		ctrl:    ctrl,
		log:     logger.Named("ws"),
		metrics: m,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and sends the full state.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "ws upgrade failed", logger.Error(err))
		return
	}

	data, err := json.Marshal(h.message("snapshot", true))
	if err != nil {
		_ = conn.Close()
		return
	}

	h.mu.Lock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.metrics.AddLiveClients("ws", 1)

	go h.readPump(conn)
}

// Run broadcasts every controller change until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ch := h.ctrl.Bus().Subscribe()
	defer h.ctrl.Bus().Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			withFeatures := ev.Kind == service.EventFeatures || ev.Kind == service.EventHighlight
			h.broadcast(h.message(string(ev.Kind), withFeatures))
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) message(kind string, withFeatures bool) Message {
	m := Message{Type: kind, Snapshot: h.ctrl.Snapshot()}
	if withFeatures {
		m.Features = h.ctrl.FeatureCollection()
	}
	return m
}

func (h *Hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error(context.Background(), "encoding ws message", logger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.dropLocked(c)
		}
	}
}

func (h *Hub) readPump(c *websocket.Conn) {
	defer h.remove(c)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *websocket.Conn) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	_ = c.Close()
	h.metrics.AddLiveClients("ws", -1)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}
