package coordinator

// Registry tracks the live connections attached to one coordinator and a
// per-user connection refcount. Presence reflects users, not connections:
// the refcount is what lets a second browser tab attach without firing a
// duplicate join event. Like RoomState, it is only touched from the
// coordinator's event loop.
type Registry struct {
	connections map[*Client]struct{}
	countByUser map[string]int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[*Client]struct{}),
		countByUser: make(map[string]int),
	}
}

// Attach registers a connection. Returns true when this is the user's
// first open connection (the caller creates presence and fires join).
func (r *Registry) Attach(c *Client) (isFirstConnectionForUser bool) {
	if _, exists := r.connections[c]; exists {
		return false
	}
	r.connections[c] = struct{}{}
	r.countByUser[c.UserID]++
	return r.countByUser[c.UserID] == 1
}

// Detach removes a connection. wasLastConnectionForUser is true when the
// user has no connections left (the caller removes presence and fires
// leave); attached is false when the connection was never registered.
func (r *Registry) Detach(c *Client) (wasLastConnectionForUser, attached bool) {
	if _, exists := r.connections[c]; !exists {
		return false, false
	}
	delete(r.connections, c)
	r.countByUser[c.UserID]--
	if r.countByUser[c.UserID] <= 0 {
		delete(r.countByUser, c.UserID)
		return true, true
	}
	return false, true
}

// Connections returns the live connection set for fan-out.
func (r *Registry) Connections() map[*Client]struct{} {
	return r.connections
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.connections)
}

// ConnectionCount returns the open-connection count for one user.
func (r *Registry) ConnectionCount(userID string) int {
	return r.countByUser[userID]
}
