// Package progress fans render progress out to websocket subscribers,
// keyed by session id.
package progress

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
)

// Event types
const (
	EventProgress = "progress"
	EventDone     = "done"
	EventError    = "error"
)

const writeWait = 2 * time.Second

// Event is one message sent to subscribers.
type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Progress  *models.Progress `json:"progress,omitempty"`
	Message   string           `json:"message,omitempty"`
	File      string           `json:"file,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// queueSize bounds the events buffered for one subscriber. A subscriber
// whose queue fills up is dropped.
const queueSize = 16

// client owns one websocket. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers and the last event of every session.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]*client
	last    map[string]Event
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]*client),
		last:    make(map[string]Event),
	}
}

// Join subscribes ws to sessionID and replays the last known event.
func (h *Hub) Join(sessionID string, ws *websocket.Conn) {
	c := &client{conn: ws, send: make(chan []byte, queueSize)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*websocket.Conn]*client)
	}
	h.clients[sessionID][ws] = c
	go h.writePump(sessionID, c)

	if ev, ok := h.last[sessionID]; ok {
		if b, ok := encode(ev); ok {
			h.enqueue(sessionID, c, b)
		}
	}
}

// Leave unsubscribes and closes ws.
func (h *Hub) Leave(sessionID string, ws *websocket.Conn) {
	h.mu.Lock()
	h.drop(sessionID, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish records ev as the session's last event and queues it for every
// subscriber without waiting on the network. Subscribers that cannot keep
// up are dropped.
func (h *Hub) Publish(ev Event) {
	b, ok := encode(ev)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[ev.SessionID] = ev
	if !ok {
		return
	}
	for _, c := range h.clients[ev.SessionID] {
		h.enqueue(ev.SessionID, c, b)
	}
}

// Forget drops the session's history and disconnects its subscribers.
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients[sessionID] {
		h.drop(sessionID, ws)
		_ = ws.Close()
	}
	delete(h.last, sessionID)
}

// Last returns the session's most recent event.
func (h *Hub) Last(sessionID string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev, ok := h.last[sessionID]
	return ev, ok
}

// Subscribers counts the session's live connections.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// Reporter adapts the hub to a render progress callback for one session.
func (h *Hub) Reporter(sessionID string) func(models.Progress) {
	return func(p models.Progress) {
		h.Publish(Event{Type: EventProgress, SessionID: sessionID, Progress: &p})
	}
}

func encode(ev Event) ([]byte, bool) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Unable to encode progress event", "session_id", ev.SessionID, "error", err)
		return nil, false
	}
	return b, true
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(sessionID string, c *client, b []byte) {
	select {
	case c.send <- b:
	default:
		slog.Debug("Dropping slow progress subscriber", "session_id", sessionID)
		h.drop(sessionID, c.conn)
		_ = c.conn.Close()
	}
}

// writePump delivers queued events until the client is dropped.
func (h *Hub) writePump(sessionID string, c *client) {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			slog.Debug("Dropping progress subscriber", "session_id", sessionID, "error", err)
			h.mu.Lock()
			h.drop(sessionID, c.conn)
			h.mu.Unlock()
			_ = c.conn.Close()
			return
		}
	}
}

// drop must be called with h.mu held. The client's queue is closed by
// whoever removes it from the map, so it is closed exactly once.
func (h *Hub) drop(sessionID string, ws *websocket.Conn) {
	conns := h.clients[sessionID]
	c, ok := conns[ws]
	if !ok {
		return
	}
	delete(conns, ws)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, sessionID)
	}
}

// ServeWS upgrades the request and streams sessionID's events until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	h.Join(sessionID, ws)
	slog.Debug("Progress subscriber connected", "session_id", sessionID)

	// incoming messages are ignored; reading detects the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.Leave(sessionID, ws)
	slog.Debug("Progress subscriber disconnected", "session_id", sessionID)
}
