package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one line of a stream's chat.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	StreamID  uuid.UUID `json:"streamId"`
	Wallet    string    `json:"wallet"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateChatMessage appends a chat message.
func (db *DB) CreateChatMessage(ctx context.Context, streamID uuid.UUID, wallet, content string) (*ChatMessage, error) {
	msg := &ChatMessage{
		ID:        uuid.New(),
		StreamID:  streamID,
		Wallet:    wallet,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, stream_id, wallet, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.StreamID, msg.Wallet, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetChatMessages returns the most recent messages in chronological order.
func (db *DB) GetChatMessages(ctx context.Context, streamID uuid.UUID, limit int) ([]ChatMessage, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, stream_id, wallet, content, created_at FROM (
			SELECT id, stream_id, wallet, content, created_at
			FROM chat_messages WHERE stream_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC
	`, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.StreamID, &m.Wallet, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
