package dashboard

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// Hub fans SessionEvents out to every connected viewer so all open
// dashboards stay in sync. Browsers attach over websocket; headless
// tools (cmd/session-watch) attach over plain TCP and receive one
// JSON event per line.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]struct{}
	ws  map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]struct{}),
		ws:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.ws[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Broadcast sends one session event to every viewer. The event is
// stamped on the way out, so callers only fill in what changed. A
// viewer that cannot take the write within the deadline is dropped.
func (h *Hub) Broadcast(ev SessionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.tcp {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write(line); err != nil {
			_ = conn.Close()
			delete(h.tcp, conn)
		}
	}
	for ws := range h.ws {
		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.tcp),
		WSClients:  len(h.ws),
	}
}

// welcomeMessage greets a new viewer with the current audience size.
type welcomeMessage struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Viewers   Stats  `json:"viewers"`
}

// Welcome greets a freshly accepted TCP viewer.
func (h *Hub) Welcome(conn net.Conn) {
	b, err := json.Marshal(welcomeMessage{Type: "welcome", Transport: "tcp", Viewers: h.Stats()})
	if err != nil {
		return
	}
	_, _ = conn.Write(append(b, '\n'))
}
