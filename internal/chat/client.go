package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	// id is the connection reference; a user with two tabs open holds two
	// distinct clients.
	id uuid.UUID

	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound payloads.
	send chan []byte

	userID    uuid.UUID
	firstName string
}

// readPump pumps events from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.hub.log.Debug().Err(err).Msg("malformed client event")
			continue
		}

		switch ev.Type {
		case EventJoinChat:
			if ev.TargetUserID == uuid.Nil {
				continue
			}
			c.hub.join <- joinRequest{client: c, roomID: RoomID(c.userID, ev.TargetUserID)}
		case EventSendMessage:
			if ev.TargetUserID == uuid.Nil || ev.Text == "" {
				continue
			}
			// Sender identity comes from the authenticated connection, not
			// from the frame.
			c.hub.inbound <- inboundMessage{client: c, targetID: ev.TargetUserID, text: ev.Text}
		default:
			c.hub.log.Debug().Str("type", ev.Type).Msg("unknown client event")
		}
	}
}

// writePump pumps payloads from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped us.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
