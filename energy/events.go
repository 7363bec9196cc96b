package energy

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// UploadEvent is pushed to websocket clients after each successful
// upload so they can refresh their file listing without polling.
type UploadEvent struct {
	Type           string `json:"type"`
	MeterID        string `json:"meterId"`
	StoredFilename string `json:"storedFilename"`
	Digest         string `json:"digest"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventHub fans upload events out to connected websocket clients.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	log     *zap.Logger
}

func newEventHub(logger *zap.Logger) *eventHub {
	return &eventHub{clients: make(map[*websocket.Conn]bool), log: logger}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *eventHub) broadcast(ev UploadEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("dropping websocket client", zap.Error(err))
			h.remove(conn)
		}
	}
}
