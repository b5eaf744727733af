package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"collab-canvas/internal/models"
	"collab-canvas/internal/repository"
)

/*
LEARNING: PER-DASHBOARD EVENT LOOP

One goroutine per dashboard drains a single channel of events. Every
control-surface call, every attach/detach, and every inbound client message
for that dashboard runs on that goroutine, so RoomState needs no locks and
every connection observes one consistent total order of broadcasts.

Suspension happens only at I/O boundaries (persisting the snapshot, sending
on a connection). A slow persist stalls this dashboard's queue, never other
dashboards - parallelism exists across rooms, not within one.
*/

// ErrCoordinatorStopped is returned for calls against a torn-down instance.
var ErrCoordinatorStopped = errors.New("coordinator: instance stopped")

// Coordinator owns the live state of one dashboard: it is a cache-with-
// fanout over the durable store, never a source of truth. The routing layer
// guarantees at most one live instance per dashboard id.
type Coordinator struct {
	dashboardID string
	store       repository.SnapshotStore
	state       *RoomState
	registry    *Registry
	faults      *FaultLogger

	events   chan func()
	quit     chan struct{}
	stopOnce sync.Once
	loadErr  error // written before quit closes on a failed cold start

	lastActive atomic.Int64
	connCount  atomic.Int64
}

// NewCoordinator creates the instance and starts its event loop. The loop
// performs the cold-start load before servicing anything: calls made during
// the load queue up and are released in arrival order once it completes.
func NewCoordinator(dashboardID string, store repository.SnapshotStore, faultWindow time.Duration) *Coordinator {
	c := &Coordinator{
		dashboardID: dashboardID,
		store:       store,
		state:       NewRoomState(),
		registry:    NewRegistry(),
		faults:      NewFaultLogger(faultWindow),
		events:      make(chan func(), 256),
		quit:        make(chan struct{}),
	}
	c.touch()
	go c.run()
	return c
}

// DashboardID returns the dashboard this instance coordinates.
func (c *Coordinator) DashboardID() string {
	return c.dashboardID
}

func (c *Coordinator) run() {
	// Cold start blocks this instance only. No safe partial-state fallback
	// exists, so a load failure is fatal: the instance never serves.
	if err := c.load(); err != nil {
		log.Printf("❌ Coordinator %s failed cold start: %v", c.dashboardID, err)
		c.loadErr = err
		c.stop()
		return
	}

	for {
		select {
		case <-c.quit:
			c.closeAllLocked()
			return
		case fn := <-c.events:
			fn()
		}
	}
}

func (c *Coordinator) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := c.store.Get(ctx, c.dashboardID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			// Never persisted: serve empty until an explicit init arrives.
			return nil
		}
		return fmt.Errorf("load snapshot: %w", err)
	}

	persisted, err := models.DecodePersistedState(data)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	c.state.Restore(persisted)
	log.Printf("  Coordinator %s restored from snapshot (%d items, %d sessions, %d edges)",
		c.dashboardID, len(c.state.Items), len(c.state.Sessions), len(c.state.Edges))
	return nil
}

// closeAllLocked tears down every live connection. Runs on the loop
// goroutine as its final act.
func (c *Coordinator) closeAllLocked() {
	for client := range c.registry.Connections() {
		client.closeSend()
	}
	c.connCount.Store(0)
}

// stop tears the instance down. Queued callers unblock with
// ErrCoordinatorStopped (or the cold-start error).
func (c *Coordinator) stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// Stopped reports whether the instance has been torn down.
func (c *Coordinator) Stopped() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// ConnectionCount is a loop-free read for the hub's idle janitor.
func (c *Coordinator) ConnectionCount() int {
	return int(c.connCount.Load())
}

// IdleSince reports the last time this instance serviced an event.
func (c *Coordinator) IdleSince() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Coordinator) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Coordinator) stopErr() error {
	if c.loadErr != nil {
		return fmt.Errorf("%w: %v", ErrCoordinatorStopped, c.loadErr)
	}
	return ErrCoordinatorStopped
}

// exec runs fn on the event loop and waits for it to complete. This is the
// only way anything observes or mutates RoomState.
func (c *Coordinator) exec(ctx context.Context, fn func()) error {
	c.touch()
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case c.events <- wrapped:
	case <-c.quit:
		return c.stopErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-c.quit:
		// The loop may have run fn just before shutdown won the race.
		select {
		case <-done:
			return nil
		default:
			return c.stopErr()
		}
	}
}

// post enqueues fn without waiting. Used for fire-and-forget connection
// events (cursor moves, detach) where the sender has no error to report.
func (c *Coordinator) post(fn func()) {
	c.touch()
	select {
	case c.events <- fn:
	case <-c.quit:
	}
}

// persist writes the full serialized room blob through the durable store
// adapter. Synchronous with respect to the mutating caller: success means
// the change survives a crash immediately after.
func (c *Coordinator) persist(ctx context.Context) error {
	data, err := c.state.Persisted().Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.store.Put(ctx, c.dashboardID, data)
}

// broadcast fans one message out to every connection except the excluded
// one. A full send buffer means that recipient misses the message; the
// failure is swallowed so one dead client can't block the room.
func (c *Coordinator) broadcast(msg models.Message, except *Client) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️  Failed to marshal %s broadcast: %v", msg.Type, err)
		return
	}
	for client := range c.registry.Connections() {
		if except != nil && client == except {
			continue
		}
		c.sendTo(client, data)
	}
}

func (c *Coordinator) sendTo(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("⚠️  Connection %s send buffer full, dropping message", client.ID)
	}
}

func (c *Coordinator) sendMessage(client *Client, msg models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️  Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	c.sendTo(client, data)
}

// Control surface: synchronous operations for trusted internal callers.
// Every mutating operation is persist-then-broadcast, and the persist
// outcome is returned to the caller. A persist failure is NOT rolled back
// in memory - callers needing strict durability must treat it as fatal to
// the instance and retire it so the next cold start rereads the durable
// copy.

// Initialize (re)seeds the room wholesale from a caller-supplied payload.
func (c *Coordinator) Initialize(ctx context.Context, payload models.InitPayload) error {
	var opErr error
	if err := c.exec(ctx, func() {
		c.state.Initialize(payload)
		opErr = c.persist(ctx)
	}); err != nil {
		return err
	}
	return opErr
}

// State returns the full current room view.
func (c *Coordinator) State(ctx context.Context) (*models.RoomSnapshot, error) {
	var snap *models.RoomSnapshot
	if err := c.exec(ctx, func() {
		snap = c.state.Snapshot()
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListItems returns the current item set.
func (c *Coordinator) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := c.exec(ctx, func() {
		items = c.state.Snapshot().Items
	}); err != nil {
		return nil, err
	}
	return items, nil
}

// PutItem creates or replaces an item. Create and update are the same
// operation; the broadcast variant depends on whether the id existed.
func (c *Coordinator) PutItem(ctx context.Context, item models.Item) error {
	var opErr error
	if err := c.exec(ctx, func() {
		_, existed := c.state.Items[item.ID]
		c.state.Items[item.ID] = item
		if opErr = c.persist(ctx); opErr != nil {
			return
		}
		if existed {
			c.broadcast(models.ItemUpdateMessage(item), nil)
		} else {
			c.broadcast(models.ItemCreateMessage(item), nil)
		}
	}); err != nil {
		return err
	}
	return opErr
}

// DeleteItem removes an item. Edges referencing it are left alone: this
// layer does not cascade, the calling layer owns consistency.
func (c *Coordinator) DeleteItem(ctx context.Context, itemID string) error {
	var opErr error
	if err := c.exec(ctx, func() {
		delete(c.state.Items, itemID)
		if opErr = c.persist(ctx); opErr != nil {
			return
		}
		c.broadcast(models.ItemDeleteMessage(itemID), nil)
	}); err != nil {
		return err
	}
	return opErr
}

// PutSession creates or replaces a session record.
func (c *Coordinator) PutSession(ctx context.Context, session models.AgentSession) error {
	var opErr error
	if err := c.exec(ctx, func() {
		c.state.Sessions[session.ID] = session
		if opErr = c.persist(ctx); opErr != nil {
			return
		}
		c.broadcast(models.SessionUpdateMessage(session), nil)
	}); err != nil {
		return err
	}
	return opErr
}

// PutEdge creates or replaces an edge.
func (c *Coordinator) PutEdge(ctx context.Context, edge models.Edge) error {
	var opErr error
	if err := c.exec(ctx, func() {
		c.state.Edges[edge.ID] = edge
		if opErr = c.persist(ctx); opErr != nil {
			return
		}
		c.broadcast(models.EdgeCreateMessage(edge), nil)
	}); err != nil {
		return err
	}
	return opErr
}

// DeleteEdge removes an edge.
func (c *Coordinator) DeleteEdge(ctx context.Context, edgeID string) error {
	var opErr error
	if err := c.exec(ctx, func() {
		delete(c.state.Edges, edgeID)
		if opErr = c.persist(ctx); opErr != nil {
			return
		}
		c.broadcast(models.EdgeDeleteMessage(edgeID), nil)
	}); err != nil {
		return err
	}
	return opErr
}

// SetBrowserHandoff sets or clears the deferred "open this URL"
// instruction. With viewers attached the instruction is delivered
// immediately and nothing is deferred; with an empty room it is stored and
// handed to the very next connection, exactly once.
func (c *Coordinator) SetBrowserHandoff(ctx context.Context, url *string) error {
	var opErr error
	if err := c.exec(ctx, func() {
		if url == nil {
			c.state.PendingHandoff = nil
			opErr = c.persist(ctx)
			return
		}
		if c.registry.Len() > 0 {
			c.state.PendingHandoff = nil
			if opErr = c.persist(ctx); opErr != nil {
				return
			}
			c.broadcast(models.BrowserOpenMessage(*url), nil)
			return
		}
		c.state.PendingHandoff = &models.BrowserHandoff{URL: *url}
		opErr = c.persist(ctx)
	}); err != nil {
		return err
	}
	return opErr
}

// PostUICommand forwards an opaque agent-issued command to every
// connection. Transient: nothing is persisted.
func (c *Coordinator) PostUICommand(ctx context.Context, command json.RawMessage) error {
	return c.exec(ctx, func() {
		c.broadcast(models.UICommandMessage(command), nil)
	})
}

// PostUICommandResult broadcasts a correlated command reply to ALL
// connections, including the originator's, so every tab can reconcile
// optimistic local state.
func (c *Coordinator) PostUICommandResult(ctx context.Context, result models.UICommandResult) error {
	return c.exec(ctx, func() {
		c.broadcast(models.UICommandResultMessage(result.CommandID, result.Success, result.Error, result.CreatedItemID), nil)
	})
}

// Connection lifecycle.

// Attach registers a connection. The user's first connection creates
// presence and fires join to all other connections; the new connection
// (and only it) then receives the full presence list, followed by the
// pending handoff if one exists - cleared atomically with delivery.
func (c *Coordinator) Attach(ctx context.Context, client *Client) error {
	return c.exec(ctx, func() {
		first := c.registry.Attach(client)
		c.connCount.Store(int64(c.registry.Len()))

		if first {
			c.state.AddPresence(client.UserID, client.DisplayName)
			c.broadcast(models.JoinMessage(client.UserID, client.DisplayName), client)
		}

		c.sendMessage(client, models.PresenceMessage(c.state.PresenceList()))

		if handoff := c.state.PendingHandoff; handoff != nil {
			c.state.PendingHandoff = nil
			c.sendMessage(client, models.BrowserOpenMessage(handoff.URL))
			// Best effort: a persist failure here leaves a stale pending
			// handoff in the durable copy, surfaced on the next restore.
			if err := c.persist(ctx); err != nil {
				log.Printf("⚠️  Failed to persist handoff clear for %s: %v", c.dashboardID, err)
			}
		}

		log.Printf("  Connection %s joined dashboard %s (user: %s, connections: %d)",
			client.ID, c.dashboardID, client.UserID, c.registry.Len())
	})
}

// Detach removes a connection. The user's last connection removes presence
// and fires leave. Errored connections take exactly this path; there is no
// distinct error state.
func (c *Coordinator) Detach(client *Client) {
	c.post(func() {
		last, attached := c.registry.Detach(client)
		if !attached {
			return
		}
		c.connCount.Store(int64(c.registry.Len()))
		client.closeSend()

		if last {
			c.state.RemovePresence(client.UserID)
			c.broadcast(models.LeaveMessage(client.UserID), nil)
		}

		log.Printf("  Connection %s left dashboard %s (user: %s, remaining: %d)",
			client.ID, c.dashboardID, client.UserID, c.registry.Len())
	})
}

// handleClientMessage applies a validated inbound cursor/select update.
// Transient state only: mutate, broadcast to the other connections, skip
// persistence. Last write wins - no sequence numbers.
func (c *Coordinator) handleClientMessage(client *Client, msg models.ClientMessage) {
	c.post(func() {
		switch msg.Type {
		case models.MessageTypeCursor:
			if msg.X == nil || msg.Y == nil {
				c.faults.Report("cursor message from %s missing coordinates", client.ID)
				return
			}
			if c.state.UpdateCursor(client.UserID, *msg.X, *msg.Y) {
				c.broadcast(models.CursorMessage(client.UserID, *msg.X, *msg.Y), client)
			}
		case models.MessageTypeSelect:
			if c.state.UpdateSelection(client.UserID, msg.ItemID) {
				c.broadcast(models.SelectMessage(client.UserID, msg.ItemID), client)
			}
		default:
			c.faults.Report("unsupported message type %q from connection %s", msg.Type, client.ID)
		}
	})
}
