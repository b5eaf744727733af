package coordinator

import (
	"log"
	"net/http"

	"collab-canvas/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, validate origin properly
		return true
	},
}

// WebSocketHandler upgrades dashboard connections and hands them to the
// right coordinator instance.
type WebSocketHandler struct {
	hub *Hub
}

// NewWebSocketHandler creates the handler.
func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleDashboardConnection upgrades a client onto a dashboard's live
// coordinator. The handshake carries user_id (required - rejected before
// anything is registered) and user_name (optional, placeholder default).
// Authorization is the caller's precondition, not enforced here.
func (h *WebSocketHandler) HandleDashboardConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	dashboardID := vars["id"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	userName := r.URL.Query().Get("user_name")
	if userName == "" {
		userName = "Anonymous"
	}

	ctx, span := middleware.StartSpan(ctx, "WebSocket.Connect",
		attribute.String("dashboard.id", dashboardID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	client := NewClient(conn, userID, userName)
	coord := h.hub.Get(dashboardID)

	// Attach before the pumps start: the direct presence reply and any
	// pending handoff land in the send buffer and go out first.
	if err := coord.Attach(ctx, client); err != nil {
		log.Printf("Failed to attach connection to dashboard %s: %v", dashboardID, err)
		middleware.AddSpanError(ctx, err)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(ctx, coord)

	log.Printf("✓ WebSocket connection established for dashboard %s (user: %s)",
		dashboardID, userName)
}
