package controlsurface

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relay"
)

// streamHub fans out engine-cycle summaries to every connected websocket
// client (spec §4.7 "/api/stream ... pushes engine-cycle summaries"). This
// is the one component that exercises gorilla/websocket, otherwise an
// unused transitive dependency in this module.
type streamHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

func newStreamHub() *streamHub {
	return &streamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Single-user local deployment (spec §1 "single-user,
			// single-process operation on a trusted host"): any origin is
			// accepted rather than wiring a CORS allowlist this module has
			// no configuration surface for.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

type streamEvent struct {
	Type      string         `json:"type"`
	Network   models.Network `json:"network"`
	TipHeight uint64         `json:"tip_height,omitempty"`
	Active    int            `json:"active_chains,omitempty"`
}

func (h *streamHub) broadcast(ev streamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			// Slow client: drop this update rather than block the cycle
			// that produced it.
		}
	}
}

func (h *streamHub) broadcastCycle(summary relay.CycleSummary) {
	h.broadcast(streamEvent{
		Type:      "cycle",
		Network:   summary.Network,
		TipHeight: summary.TipHeight,
		Active:    summary.ActiveChains,
	})
}

func (h *streamHub) broadcastStarted(network models.Network) {
	h.broadcast(streamEvent{Type: "engine_started", Network: network})
}

func (h *streamHub) broadcastStopped(network models.Network) {
	h.broadcast(streamEvent{Type: "engine_stopped", Network: network})
}

func (h *streamHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, ch := range h.clients {
		close(ch)
		_ = conn.Close()
	}
	h.clients = make(map[*websocket.Conn]chan []byte)
}

// handleStream upgrades the request and pushes every broadcast event to
// this client until it disconnects or the hub is closed.
func (a *App) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := a.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed")
		return
	}

	ch := make(chan []byte, 16)
	a.hub.mu.Lock()
	if a.hub.closed {
		a.hub.mu.Unlock()
		_ = conn.Close()
		return
	}
	a.hub.clients[conn] = ch
	a.hub.mu.Unlock()

	defer func() {
		a.hub.mu.Lock()
		delete(a.hub.clients, conn)
		a.hub.mu.Unlock()
		_ = conn.Close()
	}()

	// Drain client-initiated control frames (pings/close) on a separate
	// goroutine; this connection is push-only from the server's side.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}()

	for payload := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
