package coordinator

import (
	"log"
	"sync"
	"time"

	"collab-canvas/internal/repository"
)

// Hub is the routing table from dashboard identifier to live coordinator
// instance. Instances are created lazily on first access and torn down by
// the janitor once idle with no connections. At most one live instance per
// key within this process; across processes that guarantee belongs to the
// routing layer.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Coordinator

	store       repository.SnapshotStore
	idleTimeout time.Duration
	faultWindow time.Duration

	done chan struct{}
}

// NewHub creates the hub. Call Start to run the idle janitor.
func NewHub(store repository.SnapshotStore, idleTimeout, faultWindow time.Duration) *Hub {
	return &Hub{
		rooms:       make(map[string]*Coordinator),
		store:       store,
		idleTimeout: idleTimeout,
		faultWindow: faultWindow,
		done:        make(chan struct{}),
	}
}

// Start launches the janitor that evicts stopped and idle instances.
func (h *Hub) Start() {
	log.Println("🔄 Starting dashboard coordinator hub...")
	go h.janitorLoop()
	log.Println("✓ Coordinator hub started")
}

// Get returns the live coordinator for a dashboard, creating it on first
// access. A previously failed or evicted instance is replaced, so the next
// access retries the cold-start load.
func (h *Hub) Get(dashboardID string) *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.rooms[dashboardID]; ok && !c.Stopped() {
		return c
	}
	c := NewCoordinator(dashboardID, h.store, h.faultWindow)
	h.rooms[dashboardID] = c
	return c
}

// RoomCount returns the number of live instances.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) janitorLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep evicts stopped instances and stops instances that have sat idle
// with zero connections past the timeout. The durable store is
// authoritative, so discarding an idle instance loses nothing.
func (h *Hub) sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for id, c := range h.rooms {
		if c.Stopped() {
			delete(h.rooms, id)
			continue
		}
		if c.ConnectionCount() == 0 && now.Sub(c.IdleSince()) > h.idleTimeout {
			log.Printf("  Evicting idle coordinator %s", id)
			c.stop()
			delete(h.rooms, id)
		}
	}
}

// Shutdown tears down every instance and closes all live connections.
func (h *Hub) Shutdown() {
	log.Println("🛑 Shutting down coordinator hub...")
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.rooms {
		c.stop()
		delete(h.rooms, id)
	}
	log.Println("✓ Coordinator hub shutdown complete")
}
