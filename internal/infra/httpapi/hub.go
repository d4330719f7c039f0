package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

const writeWait = 5 * time.Second

// Event is the envelope pushed to progress subscribers.
//
// Type values:
//   - "progress" sets Current and High
//   - "case"     sets ID, Status and Passed
//   - "suite"    sets Result, Passed and ElapsedMs
type Event struct {
	Type      string       `json:"type"`
	Current   int          `json:"current,omitempty"`
	High      int          `json:"high,omitempty"`
	ID        int          `json:"id,omitempty"`
	Status    judge.Status `json:"status,omitempty"`
	Passed    bool         `json:"passed"`
	Result    string       `json:"result,omitempty"`
	ElapsedMs int64        `json:"elapsed_ms,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Hub fans suite progress out to websocket clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

var _ ports.Observer = (*Hub)(nil)

// NewHub returns a hub with no subscribers.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS upgrades the request and keeps the subscriber registered until it
// disconnects. Messages sent by clients are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) Progress(current, high int) {
	h.broadcast(Event{Type: "progress", Current: current, High: high})
}

func (h *Hub) CaseFinished(result judge.CaseResult) {
	event := Event{Type: "case", ID: result.Case.ID, Status: result.Status, Passed: result.Passed()}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}
	h.broadcast(event)
}

func (h *Hub) SuiteFinished(report *judge.SuiteReport) {
	h.broadcast(Event{
		Type:      "suite",
		Result:    report.StatusLabel(),
		Passed:    report.Passed,
		ElapsedMs: report.Elapsed.Milliseconds(),
	})
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Printf("websocket write error: %v", err)
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
