package annotations

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHistorySize = 50

// Note is a shared annotation on a dashboard module. Analysts looking
// at the same epicurve or map see each other's notes live; the last
// historySize notes replay on join.
type Note struct {
	Type   string    `json:"type"`
	Module string    `json:"module"`
	User   string    `json:"user"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

type board struct {
	connections map[*websocket.Conn]string
	history     []Note
}

type Hub struct {
	mu          sync.Mutex
	boards      map[string]*board
	historySize int
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		boards:      make(map[string]*board),
		historySize: historySize,
	}
}

func (h *Hub) Join(module string, ws *websocket.Conn, user string) []Note {
	var history []Note
	h.mu.Lock()
	b := h.boardLocked(module)
	b.connections[ws] = user
	history = append(history, b.history...)
	h.mu.Unlock()

	h.Broadcast(Note{
		Type:   "user_join",
		Module: module,
		User:   user,
		At:     time.Now().UTC(),
	})

	return history
}

func (h *Hub) Leave(module string, ws *websocket.Conn) {
	var user string
	h.mu.Lock()
	if b, ok := h.boards[module]; ok {
		if u, exists := b.connections[ws]; exists {
			user = u
		}
		delete(b.connections, ws)
	}
	h.mu.Unlock()

	_ = ws.Close()

	if user != "" {
		h.Broadcast(Note{
			Type:   "user_leave",
			Module: module,
			User:   user,
			At:     time.Now().UTC(),
		})
	}
}

func (h *Hub) Broadcast(note Note) {
	if note.At.IsZero() {
		note.At = time.Now().UTC()
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.boards[note.Module]
	if !ok {
		return
	}

	if note.Type == "note" {
		b.history = append(b.history, note)
		if len(b.history) > h.historySize {
			b.history = b.history[len(b.history)-h.historySize:]
		}
	}

	for ws := range b.connections {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(b.connections, ws)
		}
	}
}

func (h *Hub) History(module string) []Note {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.boards[module]; ok {
		return append([]Note(nil), b.history...)
	}
	return nil
}

func (h *Hub) User(module string, ws *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.boards[module]; ok {
		return b.connections[ws]
	}
	return ""
}

func (h *Hub) boardLocked(module string) *board {
	b, ok := h.boards[module]
	if !ok {
		b = &board{connections: make(map[*websocket.Conn]string)}
		h.boards[module] = b
	}
	return b
}
