package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalToMap(t *testing.T, m Message) map[string]any {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSelectMessageCarriesExplicitNull(t *testing.T) {
	out := marshalToMap(t, SelectMessage("user-a", nil))

	assert.Equal(t, "select", out["type"])
	assert.Equal(t, "user-a", out["userId"])
	// Deselection must travel as itemId:null, not as an absent field.
	v, present := out["itemId"]
	assert.True(t, present)
	assert.Nil(t, v)

	itemID := "i1"
	out = marshalToMap(t, SelectMessage("user-a", &itemID))
	assert.Equal(t, "i1", out["itemId"])
}

func TestDeleteMessagesCarryBareIDs(t *testing.T) {
	out := marshalToMap(t, ItemDeleteMessage("i1"))
	assert.Equal(t, "item_delete", out["type"])
	assert.Equal(t, "i1", out["itemId"])

	out = marshalToMap(t, EdgeDeleteMessage("e1"))
	assert.Equal(t, "edge_delete", out["type"])
	assert.Equal(t, "e1", out["edgeId"])
}

func TestPresenceMessageAlwaysHasUsersArray(t *testing.T) {
	out := marshalToMap(t, PresenceMessage(nil))
	assert.Equal(t, "presence", out["type"])
	users, present := out["users"]
	require.True(t, present)
	assert.Equal(t, []any{}, users)
}

func TestUICommandResultShape(t *testing.T) {
	out := marshalToMap(t, UICommandResultMessage("cmd-1", false, "viewport not found", ""))
	assert.Equal(t, "ui_command_result", out["type"])
	assert.Equal(t, "cmd-1", out["commandId"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "viewport not found", out["error"])
	_, present := out["createdItemId"]
	assert.False(t, present, "empty createdItemId is omitted")
}

func TestUICommandForwardsPayloadVerbatim(t *testing.T) {
	cmd := json.RawMessage(`{"commandId":"cmd-1","action":"open_panel","nested":{"a":1}}`)
	data, err := json.Marshal(UICommandMessage(cmd))
	require.NoError(t, err)

	var out struct {
		Type    MessageType     `json:"type"`
		Command json.RawMessage `json:"command"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, MessageTypeUICommand, out.Type)
	assert.JSONEq(t, string(cmd), string(out.Command))
}

func TestPersistedStateRoundTrip(t *testing.T) {
	state := &PersistedState{
		Dashboard: &Dashboard{ID: "d1", Name: "Board"},
		Items: map[string]Item{
			"i1": {ID: "i1", Type: ItemTypeNote, X: 4, Content: map[string]any{"text": "hi"}},
		},
		Sessions:       map[string]AgentSession{"s1": {ID: "s1", Status: SessionStatusRunning}},
		Edges:          map[string]Edge{"e1": {ID: "e1", SourceID: "i1", TargetID: "i2"}},
		PendingHandoff: &BrowserHandoff{URL: "https://example.com"},
	}

	data, err := state.Encode()
	require.NoError(t, err)

	decoded, err := DecodePersistedState(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}
