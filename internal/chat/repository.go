package chat

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"devconnect/internal/errs"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append writes a message to the conversation between a and b, creating the
// conversation lazily. The upsert keyed on room_id makes concurrent first
// messages converge on a single conversation row.
func (r *Repository) Append(ctx context.Context, a, b, senderID uuid.UUID, text string) (*Message, error) {
	if senderID != a && senderID != b {
		return nil, errs.InvalidArg("sender is not a participant of this conversation")
	}
	if text == "" {
		return nil, errs.InvalidArg("message text cannot be empty")
	}

	roomID := RoomID(a, b)

	var convID int64
	upsert := `
		INSERT INTO conversations (room_id, user_a, user_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO UPDATE SET room_id = EXCLUDED.room_id
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, upsert, roomID, a, b).Scan(&convID); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "upsert conversation", err)
	}

	msg := &Message{ConversationID: convID, SenderID: senderID, Text: text}
	insert := `
		INSERT INTO messages (conversation_id, sender_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, insert, convID, senderID, text).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "append message", err)
	}
	return msg, nil
}

// History returns the conversation's messages in append order. A pair that
// never chatted yields an empty slice.
func (r *Repository) History(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]Message, error) {
	roomID := RoomID(a, b)
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.text, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.room_id = $1
		ORDER BY m.id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "query history", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "query history", err)
	}
	return messages, nil
}
