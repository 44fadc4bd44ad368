package handler

import (
	"net/http"
	"time"

	"hrops/internal/middleware"
	"hrops/internal/notification"
	"hrops/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// EventsHandler streams device notifications to admin dashboards.
type EventsHandler struct {
	hub    *notification.Hub
	logger logger.Logger
}

func NewEventsHandler(hub *notification.Hub, log logger.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: log}
}

// Stream upgrades the connection and subscribes it to the caller's
// company feed until the client goes away.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.CompanyIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "Missing company context")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", logger.Fields{"error": err.Error()})
		return
	}

	h.hub.Register(conn, companyID)
	defer h.hub.Unregister(conn)

	// Reads only carry pings; the hub owns all writes. A failed read
	// means the client disconnected.
	conn.SetReadLimit(512)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Minute)); err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
