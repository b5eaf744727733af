package models

import "time"

// SessionStatus tracks the lifecycle of a terminal-like attachment.
type SessionStatus string

const (
	SessionStatusStarting SessionStatus = "starting"
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusIdle     SessionStatus = "idle"
	SessionStatusStopped  SessionStatus = "stopped"
)

// AgentSession is one active terminal-like attachment on the canvas.
// Sessions have a lifecycle independent from items: the sandbox lifecycle
// manager updates them through the control surface as the underlying
// process starts, runs, and exits.
type AgentSession struct {
	ID        string        `json:"id"`
	ItemID    string        `json:"itemId,omitempty"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty"`
}

// Presence is ephemeral per-user state, keyed by user (not connection) so
// multiple tabs from the same user share one entry. It exists only while at
// least one connection for that user is open and is never persisted.
type Presence struct {
	UserID         string    `json:"userId"`
	DisplayName    string    `json:"displayName"`
	Cursor         *Point    `json:"cursor"`
	SelectedItemID *string   `json:"selectedItemId"`
	ConnectedAt    time.Time `json:"connectedAt"`
}
