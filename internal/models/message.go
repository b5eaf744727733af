package models

import "encoding/json"

/*
LEARNING: TAGGED MESSAGE ENVELOPE

Every frame pushed to a client is a discriminated union tagged by "type".
One constructor per variant keeps the set of message kinds closed: a new
variant means a new constructor, and the compiler finds every send site.

Omitempty keeps the wire shape flat - each variant only carries its own
fields, there is no nested payload object to unwrap on the client.
*/

// MessageType discriminates the broadcast envelope.
type MessageType string

const (
	// Presence family
	MessageTypeJoin     MessageType = "join"
	MessageTypeLeave    MessageType = "leave"
	MessageTypePresence MessageType = "presence"
	MessageTypeCursor   MessageType = "cursor"
	MessageTypeSelect   MessageType = "select"

	// Content family
	MessageTypeItemCreate    MessageType = "item_create"
	MessageTypeItemUpdate    MessageType = "item_update"
	MessageTypeItemDelete    MessageType = "item_delete"
	MessageTypeEdgeCreate    MessageType = "edge_create"
	MessageTypeEdgeDelete    MessageType = "edge_delete"
	MessageTypeSessionUpdate MessageType = "session_update"

	// Handoff family
	MessageTypeBrowserOpen MessageType = "browser_open"

	// Agent-issued UI control
	MessageTypeUICommand       MessageType = "ui_command"
	MessageTypeUICommandResult MessageType = "ui_command_result"
)

// Message is the outbound wire envelope. Only the fields belonging to the
// tagged variant are populated; use the constructors below rather than
// building one by hand.
type Message struct {
	Type MessageType `json:"type"`

	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	Users []Presence `json:"users,omitempty"`

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// Select carries itemId as a nullable field: null means "deselected",
	// which is distinct from the field being absent.
	SelectedItemID *string `json:"itemId,omitempty"`

	Item    *Item         `json:"item,omitempty"`
	ItemID  string        `json:"-"`
	Edge    *Edge         `json:"edge,omitempty"`
	EdgeID  string        `json:"-"`
	Session *AgentSession `json:"session,omitempty"`

	URL string `json:"url,omitempty"`

	Command json.RawMessage `json:"command,omitempty"`

	CommandID     string `json:"commandId,omitempty"`
	Success       *bool  `json:"success,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedItemID string `json:"createdItemId,omitempty"`
}

// MarshalJSON emits variant-specific fields that need explicit null or
// delete-id handling; everything else rides the struct tags.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	switch m.Type {
	case MessageTypeItemDelete:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			ItemID string      `json:"itemId"`
		}{m.Type, m.ItemID})
	case MessageTypeEdgeDelete:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			EdgeID string      `json:"edgeId"`
		}{m.Type, m.EdgeID})
	case MessageTypeSelect:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			UserID string      `json:"userId"`
			ItemID *string     `json:"itemId"`
		}{m.Type, m.UserID, m.SelectedItemID})
	case MessageTypePresence:
		users := m.Users
		if users == nil {
			users = []Presence{}
		}
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Users []Presence  `json:"users"`
		}{m.Type, users})
	}
	return json.Marshal(alias(m))
}

// Constructors - one per variant.

func JoinMessage(userID, displayName string) Message {
	return Message{Type: MessageTypeJoin, UserID: userID, DisplayName: displayName}
}

func LeaveMessage(userID string) Message {
	return Message{Type: MessageTypeLeave, UserID: userID}
}

func PresenceMessage(users []Presence) Message {
	return Message{Type: MessageTypePresence, Users: users}
}

func CursorMessage(userID string, x, y float64) Message {
	return Message{Type: MessageTypeCursor, UserID: userID, X: &x, Y: &y}
}

func SelectMessage(userID string, itemID *string) Message {
	return Message{Type: MessageTypeSelect, UserID: userID, SelectedItemID: itemID}
}

func ItemCreateMessage(item Item) Message {
	return Message{Type: MessageTypeItemCreate, Item: &item}
}

func ItemUpdateMessage(item Item) Message {
	return Message{Type: MessageTypeItemUpdate, Item: &item}
}

func ItemDeleteMessage(itemID string) Message {
	return Message{Type: MessageTypeItemDelete, ItemID: itemID}
}

func EdgeCreateMessage(edge Edge) Message {
	return Message{Type: MessageTypeEdgeCreate, Edge: &edge}
}

func EdgeDeleteMessage(edgeID string) Message {
	return Message{Type: MessageTypeEdgeDelete, EdgeID: edgeID}
}

func SessionUpdateMessage(session AgentSession) Message {
	return Message{Type: MessageTypeSessionUpdate, Session: &session}
}

func BrowserOpenMessage(url string) Message {
	return Message{Type: MessageTypeBrowserOpen, URL: url}
}

func UICommandMessage(command json.RawMessage) Message {
	return Message{Type: MessageTypeUICommand, Command: command}
}

func UICommandResultMessage(commandID string, success bool, errMsg, createdItemID string) Message {
	return Message{
		Type:          MessageTypeUICommandResult,
		CommandID:     commandID,
		Success:       &success,
		Error:         errMsg,
		CreatedItemID: createdItemID,
	}
}

// UICommandResult is the correlated reply to an agent-issued UI command,
// posted by whichever client executed it and broadcast back to every tab.
type UICommandResult struct {
	CommandID     string `json:"commandId"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	CreatedItemID string `json:"createdItemId,omitempty"`
}

// ClientMessage is the inbound frame from a connected client. Clients may
// only send cursor and select updates; everything else is dropped and
// counted by the fault logger.
type ClientMessage struct {
	Type   MessageType `json:"type"`
	X      *float64    `json:"x,omitempty"`
	Y      *float64    `json:"y,omitempty"`
	ItemID *string     `json:"itemId"`
}
