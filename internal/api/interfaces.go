package api

import (
	"context"
	"encoding/json"

	"collab-canvas/internal/models"
	"collab-canvas/internal/services/coordinator"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES (Go Idiom)

This package is the CONSUMER of the coordinator, so the control-surface
interface lives HERE. Handlers only care about the operations they call,
not how the event loop behind them works - and tests can swap in a fake
room without a hub.
*/

// RoomCoordinator is the control surface one dashboard exposes to trusted
// internal callers. Every mutating operation is persist-then-broadcast and
// returns the persist outcome synchronously.
type RoomCoordinator interface {
	Initialize(ctx context.Context, payload models.InitPayload) error
	State(ctx context.Context) (*models.RoomSnapshot, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	PutItem(ctx context.Context, item models.Item) error
	DeleteItem(ctx context.Context, itemID string) error
	PutSession(ctx context.Context, session models.AgentSession) error
	PutEdge(ctx context.Context, edge models.Edge) error
	DeleteEdge(ctx context.Context, edgeID string) error
	SetBrowserHandoff(ctx context.Context, url *string) error
	PostUICommand(ctx context.Context, command json.RawMessage) error
	PostUICommandResult(ctx context.Context, result models.UICommandResult) error
}

var _ RoomCoordinator = (*coordinator.Coordinator)(nil)
