package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"collab-canvas/internal/models"
	"collab-canvas/internal/services/coordinator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler exposes the control surface over HTTP for trusted internal
// callers (REST/CRUD handlers, the sandbox lifecycle manager, the agent
// task runner). End users never talk to these routes; they get the
// WebSocket surface.
type Handler struct {
	hub       *coordinator.Hub
	wsHandler *coordinator.WebSocketHandler
}

// NewHandler wires the control surface to the hub.
func NewHandler(hub *coordinator.Hub, wsHandler *coordinator.WebSocketHandler) *Handler {
	return &Handler{hub: hub, wsHandler: wsHandler}
}

// room resolves the request's dashboard to its live coordinator, consumed
// through the control-surface interface.
func (h *Handler) room(r *http.Request) RoomCoordinator {
	return h.hub.Get(mux.Vars(r)["id"])
}

// writeControlError maps coordinator failures onto status codes. A persist
// failure means memory and the durable store disagree until the instance
// is retired - the caller escalates, so it must see the failure.
func writeControlError(w http.ResponseWriter, err error) {
	if errors.Is(err, coordinator.ErrCoordinatorStopped) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// InitializeRoom (re)seeds a dashboard wholesale.
func (h *Handler) InitializeRoom(w http.ResponseWriter, r *http.Request) {
	var payload models.InitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Dashboard == nil {
		payload.Dashboard = models.NewDashboard(mux.Vars(r)["id"], "", "")
	}

	if err := h.room(r).Initialize(r.Context(), payload); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"initialized": true})
}

// GetState returns the full current room view.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.room(r).State(r.Context())
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListItems returns the current item set.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.room(r).ListItems(r.Context())
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// PutItem creates or replaces an item. A missing id gets a generated one.
func (h *Handler) PutItem(w http.ResponseWriter, r *http.Request) {
	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Type == "" {
		http.Error(w, "item type is required", http.StatusBadRequest)
		return
	}

	if err := h.room(r).PutItem(r.Context(), item); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item. Edges referencing it are the caller's
// problem; this layer does not cascade.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]
	if err := h.room(r).DeleteItem(r.Context(), itemID); err != nil {
		writeControlError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutSession creates or replaces a session record (sandbox lifecycle
// manager reporting status transitions).
func (h *Handler) PutSession(w http.ResponseWriter, r *http.Request) {
	var session models.AgentSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	if err := h.room(r).PutSession(r.Context(), session); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// PutEdge creates or replaces an edge.
func (h *Handler) PutEdge(w http.ResponseWriter, r *http.Request) {
	var edge models.Edge
	if err := json.NewDecoder(r.Body).Decode(&edge); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	if edge.SourceID == "" || edge.TargetID == "" {
		http.Error(w, "edge sourceId and targetId are required", http.StatusBadRequest)
		return
	}

	if err := h.room(r).PutEdge(r.Context(), edge); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

// DeleteEdge removes an edge.
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	edgeID := mux.Vars(r)["edgeId"]
	if err := h.room(r).DeleteEdge(r.Context(), edgeID); err != nil {
		writeControlError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBrowserHandoff sets (url) or clears (null url) the deferred browser
// navigation instruction.
func (h *Handler) SetBrowserHandoff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL *string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.room(r).SetBrowserHandoff(r.Context(), req.URL); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": req.URL != nil})
}

// PostUICommand forwards an opaque agent-issued command to every connected
// client. A missing commandId gets a generated one so results can be
// correlated.
func (h *Handler) PostUICommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Command) == 0 {
		http.Error(w, "command is required", http.StatusBadRequest)
		return
	}

	commandID := ensureCommandID(&req.Command)
	if err := h.room(r).PostUICommand(r.Context(), req.Command); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commandId": commandID})
}

// ensureCommandID injects a generated commandId into an opaque command
// object that lacks one, returning whichever id the command carries.
func ensureCommandID(command *json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(*command, &obj); err != nil {
		return ""
	}
	if raw, ok := obj["commandId"]; ok {
		var id string
		_ = json.Unmarshal(raw, &id)
		return id
	}
	id := uuid.NewString()
	idRaw, _ := json.Marshal(id)
	obj["commandId"] = idRaw
	if updated, err := json.Marshal(obj); err == nil {
		*command = updated
	}
	return id
}

// PostUICommandResult broadcasts a correlated command reply to all
// connected clients.
func (h *Handler) PostUICommandResult(w http.ResponseWriter, r *http.Request) {
	var result models.UICommandResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if result.CommandID == "" {
		http.Error(w, "commandId is required", http.StatusBadRequest)
		return
	}

	if err := h.room(r).PostUICommandResult(r.Context(), result); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"broadcast": true})
}

// HandleDashboardWebSocket is the persistent-connection entry point.
func (h *Handler) HandleDashboardWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleDashboardConnection(w, r)
}
