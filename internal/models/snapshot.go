package models

import "encoding/json"

// PersistedState is the single blob written to the durable store, one per
// dashboard. Presence is deliberately excluded: it is reconstructed from
// live connections and never persisted.
type PersistedState struct {
	Dashboard      *Dashboard              `json:"dashboard"`
	Items          map[string]Item         `json:"items"`
	Sessions       map[string]AgentSession `json:"sessions"`
	Edges          map[string]Edge         `json:"edges"`
	PendingHandoff *BrowserHandoff         `json:"pendingHandoff"`
}

// RoomSnapshot is the full current view of a room, as returned by the
// control surface's get_state operation and used to hydrate new clients.
type RoomSnapshot struct {
	Dashboard *Dashboard     `json:"dashboard"`
	Items     []Item         `json:"items"`
	Edges     []Edge         `json:"edges"`
	Sessions  []AgentSession `json:"sessions"`
	Presence  []Presence     `json:"presence"`
}

// InitPayload is the caller-supplied full state for (re)seeding a room.
type InitPayload struct {
	Dashboard *Dashboard     `json:"dashboard"`
	Items     []Item         `json:"items"`
	Sessions  []AgentSession `json:"sessions"`
	Edges     []Edge         `json:"edges"`
}

// Encode serializes the persisted blob.
func (s *PersistedState) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodePersistedState parses a blob read back from the durable store.
func DecodePersistedState(data []byte) (*PersistedState, error) {
	var s PersistedState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
