package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// ItemType enumerates the kinds of items that can live on a canvas.
type ItemType string

const (
	ItemTypeNote        ItemType = "note"
	ItemTypeTerminal    ItemType = "terminal"
	ItemTypeBrowser     ItemType = "browser"
	ItemTypeIntegration ItemType = "integration"
)

// Dashboard is the descriptor record for one collaborative canvas.
// Replaced wholesale on re-initialization, never partially merged.
type Dashboard struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is one element on the canvas. Create and update are the same
// operation: an item record is stored by identifier, so a "create" that
// reuses an existing identifier behaves as an update.
type Item struct {
	ID      string         `json:"id"`
	Type    ItemType       `json:"type"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	Width   float64        `json:"width,omitempty"`
	Height  float64        `json:"height,omitempty"`
	Content map[string]any `json:"content,omitempty"`
}

// Edge connects two items on the canvas. This layer does not enforce
// referential integrity: deleting an item does not cascade to its edges.
type Edge struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BrowserHandoff is a deferred "navigate to URL" instruction awaiting the
// next connection. Delivered to exactly one connection, exactly once, ever.
type BrowserHandoff struct {
	URL string `json:"url"`
}

// NewDashboard builds a dashboard descriptor with a fresh KSUID when the
// caller did not supply an identifier.
func NewDashboard(id, name, ownerID string) *Dashboard {
	if id == "" {
		id = ksuid.New().String()
	}
	return &Dashboard{
		ID:        id,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
}
