package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"collab-canvas/internal/models"
	"collab-canvas/internal/repository"
	"collab-canvas/internal/services/coordinator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *fakeStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[id]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return data, nil
}

func (s *fakeStore) Put(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	hub := coordinator.NewHub(&fakeStore{data: make(map[string][]byte)}, time.Minute, time.Second)
	t.Cleanup(hub.Shutdown)
	return SetupRoutes(NewHandler(hub, coordinator.NewWebSocketHandler(hub)))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestControlSurfaceItemLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "PUT", "/api/dashboards/d1/items",
		models.Item{ID: "i1", Type: models.ItemTypeNote, X: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	// Missing id gets a generated one.
	rec = doJSON(t, router, "PUT", "/api/dashboards/d1/items",
		models.Item{Type: models.ItemTypeTerminal})
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, router, "GET", "/api/dashboards/d1/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Items []models.Item `json:"items"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 2, listing.Count)

	rec = doJSON(t, router, "DELETE", "/api/dashboards/d1/items/i1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, "GET", "/api/dashboards/d1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, created.ID, snap.Items[0].ID)
}

func TestControlSurfaceValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "PUT", "/api/dashboards/d1/items", models.Item{ID: "i1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "item type is required")

	rec = doJSON(t, router, "PUT", "/api/dashboards/d1/edges", models.Edge{ID: "e1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "edge endpoints are required")

	rec = doJSON(t, router, "POST", "/api/dashboards/d1/commands", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "command is required")

	rec = doJSON(t, router, "POST", "/api/dashboards/d1/commands/result",
		models.UICommandResult{Success: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "commandId is required")
}

func TestInitializeAndStateRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	payload := models.InitPayload{
		Dashboard: &models.Dashboard{ID: "d1", Name: "Ops"},
		Items:     []models.Item{{ID: "i1", Type: models.ItemTypeNote}},
		Edges:     []models.Edge{{ID: "e1", SourceID: "i1", TargetID: "i2"}},
	}
	rec := doJSON(t, router, "POST", "/api/dashboards/d1/init", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/dashboards/d1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "Ops", snap.Dashboard.Name)
	assert.Len(t, snap.Items, 1)
	assert.Len(t, snap.Edges, 1)
	assert.Empty(t, snap.Presence)
}

func TestBrowserHandoffEndpoint(t *testing.T) {
	router := newTestRouter(t)

	url := "https://example.com/review"
	rec := doJSON(t, router, "POST", "/api/dashboards/d1/handoff", map[string]any{"url": url})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":true`)

	rec = doJSON(t, router, "POST", "/api/dashboards/d1/handoff", map[string]any{"url": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":false`)
}

func TestPostUICommandGeneratesCommandID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/dashboards/d1/commands",
		map[string]any{"command": map[string]any{"action": "open_panel"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CommandID string `json:"commandId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CommandID)
}

func TestWebSocketHandshakeRequiresUserID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/ws/dashboard/d1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code,
		"missing user_id is rejected before any connection is registered")
}
