package notification

import (
	"sync"

	"hrops/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans notifications out to connected admin dashboards over
// websockets, scoped per company.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]uuid.UUID
	logger logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]uuid.UUID),
		logger: log,
	}
}

// Register adds a connection for the given company's feed.
func (h *Hub) Register(conn *websocket.Conn, companyID uuid.UUID) {
	h.mu.Lock()
	h.conns[conn] = companyID
	h.mu.Unlock()

	h.logger.Debug("Dashboard client connected", logger.Fields{"company_id": companyID})
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()

	_ = conn.Close()
}

// Broadcast sends the payload to every client watching the company.
// Dead connections are dropped on write failure.
func (h *Hub) Broadcast(companyID uuid.UUID, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, cid := range h.conns {
		if cid != companyID {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Debug("Dropping dashboard client", logger.Fields{
				"company_id": companyID,
				"error":      err.Error(),
			})
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}
