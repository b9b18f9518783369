package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Wire event types.
const (
	EventJoinChat       = "joinChat"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
)

// Event is the JSON frame exchanged over the websocket in both directions.
type Event struct {
	Type         string    `json:"type"`
	FirstName    string    `json:"firstName,omitempty"`
	UserID       uuid.UUID `json:"userId"`
	TargetUserID uuid.UUID `json:"targetUserId"`
	Text         string    `json:"text,omitempty"`
}

// Message is a persisted chat message within a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// envelope is the frame published through Redis so every instance can
// deliver to its local members of the room.
type envelope struct {
	RoomID     string          `json:"roomId"`
	SenderConn uuid.UUID       `json:"senderConn"`
	Payload    json.RawMessage `json:"payload"`
}
