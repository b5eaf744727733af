package coordinator

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"collab-canvas/internal/middleware"
	"collab-canvas/internal/models"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	sendBufferSize = 256
)

// Client is one live connection to a coordinator, tagged with the identity
// of the user behind it. Presence is never stored on the connection -
// multiple tabs from the same user map to one presence entry keyed by
// UserID.
type Client struct {
	ID          string
	UserID      string
	DisplayName string

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, userID, displayName string) *Client {
	return &Client{
		ID:          ksuid.New().String(),
		UserID:      userID,
		DisplayName: displayName,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
	}
}

// closeSend shuts the outbound channel. Only ever called from the
// coordinator's event loop, which is also the only sender - so this can't
// race a concurrent send.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ReadPump reads inbound frames until the connection dies, then detaches.
// A transport fault and a graceful close take the same exit path.
func (c *Client) ReadPump(ctx context.Context, coord *Coordinator) {
	defer func() {
		coord.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on connection %s: %v", c.ID, err)
			}
			return
		}

		msgCtx, span := middleware.StartSpan(ctx, "WebSocket.ProcessMessage",
			attribute.String("connection.id", c.ID),
			attribute.String("dashboard.id", coord.DashboardID()),
			attribute.Int("message.size", len(data)),
		)

		// Malformed input never closes the connection: drop it, count it.
		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			coord.faults.Report("malformed message from connection %s: %v", c.ID, err)
			span.End()
			continue
		}

		coord.handleClientMessage(c, msg)
		span.End()
		_ = msgCtx
	}
}

// WritePump drains the send channel onto the wire, batching queued frames
// and keeping the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message: clients parse each frame as a single
			// JSON envelope.
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
