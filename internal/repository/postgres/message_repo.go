package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

type MessageRepo struct {
	DB *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{DB: db}
}

// SaveMessage inserts m and fills in its ID and creation time.
func (r *MessageRepo) SaveMessage(ctx context.Context, m *domain.Message) error {
	query := `
	INSERT INTO messages (text, sender_id, receiver_id, is_broadcast)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created;
	`
	var receiverID sql.NullInt64
	if m.ReceiverID != nil {
		receiverID = sql.NullInt64{Int64: *m.ReceiverID, Valid: true}
	}

	err := r.DB.QueryRowContext(ctx, query, m.Text, m.SenderID, receiverID, m.IsBroadcast).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages visible to userID, newest first:
// ones it sent, broadcasts, and ones addressed to it.
func (r *MessageRepo) RecentMessages(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	query := `
	SELECT m.id, m.sender_id, s.username, m.receiver_id, COALESCE(rcv.username, ''), m.is_broadcast, m.text, m.created
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	LEFT JOIN users rcv ON rcv.id = m.receiver_id
	WHERE m.sender_id = $1 OR m.is_broadcast OR m.receiver_id = $1
	ORDER BY m.created DESC, m.id DESC
	LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var receiverID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Sender, &receiverID, &m.Receiver, &m.IsBroadcast, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if receiverID.Valid {
			id := receiverID.Int64
			m.ReceiverID = &id
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
