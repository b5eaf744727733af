package api

import (
	"net/http"

	"collab-canvas/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes builds the router: control surface under /api for trusted
// internal callers, WebSocket surface under /ws for end-user connections.
func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Room lifecycle and state
	api.HandleFunc("/dashboards/{id}/init", h.InitializeRoom).Methods("POST")
	api.HandleFunc("/dashboards/{id}/state", h.GetState).Methods("GET")

	// Items
	api.HandleFunc("/dashboards/{id}/items", h.ListItems).Methods("GET")
	api.HandleFunc("/dashboards/{id}/items", h.PutItem).Methods("PUT")
	api.HandleFunc("/dashboards/{id}/items/{itemId}", h.DeleteItem).Methods("DELETE")

	// Sessions
	api.HandleFunc("/dashboards/{id}/sessions", h.PutSession).Methods("PUT")

	// Edges
	api.HandleFunc("/dashboards/{id}/edges", h.PutEdge).Methods("PUT")
	api.HandleFunc("/dashboards/{id}/edges/{edgeId}", h.DeleteEdge).Methods("DELETE")

	// Browser handoff
	api.HandleFunc("/dashboards/{id}/handoff", h.SetBrowserHandoff).Methods("POST")

	// Agent-issued UI control
	api.HandleFunc("/dashboards/{id}/commands", h.PostUICommand).Methods("POST")
	api.HandleFunc("/dashboards/{id}/commands/result", h.PostUICommandResult).Methods("POST")

	// Health check endpoint
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// WebSocket routes
	r.HandleFunc("/ws/dashboard/{id}", h.HandleDashboardWebSocket)

	return r
}
