// Package websocket pushes import progress to presentation clients so a
// long batch import can be tracked without polling and without sharing
// mutable state with the engine.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mdacli/pkg/contracts/domain"
	"mdacli/pkg/contracts/events"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer bounds per-client queues; a slow client is dropped
	// instead of stalling the import worker publishing events.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The engine binds to localhost for a presentation shell on the same
	// machine; cross-origin checks stay with a fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan events.Event
}

// NewHub creates a hub. Call Shutdown when the server stops.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With(slog.String("component", "progress_hub")),
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan events.Event, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client connected", slog.Int("active_clients", count))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// PublishProgress implements the importer's progress observer.
func (h *Hub) PublishProgress(p domain.Progress) {
	h.broadcast(events.NewEvent(events.TypeImportProgress, p))
}

// PublishResult announces a finished import.
func (h *Hub) PublishResult(r *domain.ImportResult) {
	h.broadcast(events.NewEvent(events.TypeImportComplete, r))
}

// PublishReset announces that the session was cleared.
func (h *Hub) PublishReset() {
	h.broadcast(events.NewEvent(events.TypeSessionReset, nil))
}

// broadcast fans an event out to every connected client. Clients whose
// queue is full are disconnected; progress events are advisory and must
// never block the publisher.
func (h *Hub) broadcast(event events.Event) {
	h.mu.RLock()
	var stalled []*client
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.logger.Warn("dropping stalled websocket client")
		h.remove(c)
	}
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for event := range c.send {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal event", slog.String("error", err.Error()))
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			return
		}
	}
	// send channel closed: hub shutdown
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

// readLoop drains (and ignores) client messages so pings and close frames
// are processed.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
