package coordinator

import (
	"sort"
	"time"

	"collab-canvas/internal/models"
)

// RoomState is the authoritative in-memory projection of one dashboard.
// It is owned exclusively by the coordinator's event loop and is never
// touched from outside it, which is why there are no locks here.
type RoomState struct {
	Dashboard      *models.Dashboard
	Items          map[string]models.Item
	Edges          map[string]models.Edge
	Sessions       map[string]models.AgentSession
	Presence       map[string]*models.Presence
	PendingHandoff *models.BrowserHandoff
}

// NewRoomState constructs an empty, uninitialized room.
func NewRoomState() *RoomState {
	return &RoomState{
		Items:    make(map[string]models.Item),
		Edges:    make(map[string]models.Edge),
		Sessions: make(map[string]models.AgentSession),
		Presence: make(map[string]*models.Presence),
	}
}

// Initialize overwrites dashboard/items/sessions/edges wholesale. Calling
// it twice simply replaces state again - there is no merge. Presence is
// untouched: it is derived from live connections, not from seed payloads.
func (s *RoomState) Initialize(payload models.InitPayload) {
	s.Dashboard = payload.Dashboard

	s.Items = make(map[string]models.Item, len(payload.Items))
	for _, item := range payload.Items {
		s.Items[item.ID] = item
	}

	s.Sessions = make(map[string]models.AgentSession, len(payload.Sessions))
	for _, session := range payload.Sessions {
		s.Sessions[session.ID] = session
	}

	s.Edges = make(map[string]models.Edge, len(payload.Edges))
	for _, edge := range payload.Edges {
		s.Edges[edge.ID] = edge
	}
}

// Restore loads state from a persisted blob on cold start.
func (s *RoomState) Restore(p *models.PersistedState) {
	s.Dashboard = p.Dashboard
	s.PendingHandoff = p.PendingHandoff
	if p.Items != nil {
		s.Items = p.Items
	}
	if p.Sessions != nil {
		s.Sessions = p.Sessions
	}
	if p.Edges != nil {
		s.Edges = p.Edges
	}
}

// Persisted projects the durable subset of the room. Presence is
// deliberately excluded.
func (s *RoomState) Persisted() *models.PersistedState {
	return &models.PersistedState{
		Dashboard:      s.Dashboard,
		Items:          s.Items,
		Sessions:       s.Sessions,
		Edges:          s.Edges,
		PendingHandoff: s.PendingHandoff,
	}
}

// Snapshot returns the full current view of the room.
func (s *RoomState) Snapshot() *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Dashboard: s.Dashboard,
		Items:     make([]models.Item, 0, len(s.Items)),
		Edges:     make([]models.Edge, 0, len(s.Edges)),
		Sessions:  make([]models.AgentSession, 0, len(s.Sessions)),
		Presence:  s.PresenceList(),
	}
	for _, item := range s.Items {
		snap.Items = append(snap.Items, item)
	}
	for _, edge := range s.Edges {
		snap.Edges = append(snap.Edges, edge)
	}
	for _, session := range s.Sessions {
		snap.Sessions = append(snap.Sessions, session)
	}
	// Stable output for callers and tests; rendering order is a client
	// concern, but nondeterministic map order makes diffs painful.
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].ID < snap.Items[j].ID })
	sort.Slice(snap.Edges, func(i, j int) bool { return snap.Edges[i].ID < snap.Edges[j].ID })
	sort.Slice(snap.Sessions, func(i, j int) bool { return snap.Sessions[i].ID < snap.Sessions[j].ID })
	return snap
}

// PresenceList returns all presence entries, one per connected user.
func (s *RoomState) PresenceList() []models.Presence {
	list := make([]models.Presence, 0, len(s.Presence))
	for _, p := range s.Presence {
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list
}

// AddPresence creates the presence entry for a user's first connection.
func (s *RoomState) AddPresence(userID, displayName string) *models.Presence {
	p := &models.Presence{
		UserID:      userID,
		DisplayName: displayName,
		ConnectedAt: time.Now(),
	}
	s.Presence[userID] = p
	return p
}

// RemovePresence deletes the presence entry when a user's last connection
// goes away.
func (s *RoomState) RemovePresence(userID string) {
	delete(s.Presence, userID)
}

// UpdateCursor records a transient cursor move. Last write wins.
func (s *RoomState) UpdateCursor(userID string, x, y float64) bool {
	p, ok := s.Presence[userID]
	if !ok {
		return false
	}
	p.Cursor = &models.Point{X: x, Y: y}
	return true
}

// UpdateSelection records a transient selection change. A nil itemID means
// the user deselected.
func (s *RoomState) UpdateSelection(userID string, itemID *string) bool {
	p, ok := s.Presence[userID]
	if !ok {
		return false
	}
	p.SelectedItemID = itemID
	return true
}
