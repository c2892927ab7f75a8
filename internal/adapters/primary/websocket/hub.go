package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/askvinny/agent-performance-backend/internal/core/ports"
)

// RefreshEvent is pushed to every connected client when a fresh report
// table has been loaded, so dashboards know to re-render.
type RefreshEvent struct {
	Type      string `json:"type"`
	LoadedAt  string `json:"loadedAt"`
	WeekCount int    `json:"weekCount"`
}

// EventTypeReportRefreshed identifies a refresh notification.
const EventTypeReportRefreshed = "report_refreshed"

// Hub maintains the set of active Clients and broadcasts refresh events
// to them.
type Hub struct {
	clients map[*Client]bool

	// Broadcast channel for events
	broadcast chan RefreshEvent

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients map
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the ReportBroadcaster interface.
var _ ports.ReportBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan RefreshEvent, 16),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// BroadcastRefresh sends a refresh event to the hub's broadcast channel.
// This method implements the ports.ReportBroadcaster interface.
func (h *Hub) BroadcastRefresh(loadedAt time.Time, weekCount int) {
	event := RefreshEvent{
		Type:      EventTypeReportRefreshed,
		LoadedAt:  loadedAt.UTC().Format(time.RFC3339),
		WeekCount: weekCount,
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
		)
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered",
		"total_connections", len(h.clients),
	)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client]; exists {
		delete(h.clients, client)
		client.Close()
	}

	h.logger.Info("client unregistered",
		"total_connections", len(h.clients),
	)
}

// broadcastEvent fans an event out to every connected client. A client
// whose send buffer is full is dropped rather than allowed to block the
// hub.
func (h *Hub) broadcastEvent(event RefreshEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- event:
		default:
			h.logger.Warn("client send buffer full, dropping connection")
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}
