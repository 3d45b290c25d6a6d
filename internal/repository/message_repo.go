package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-chat-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()

	query := `INSERT INTO messages (id, conversation_id, role, content)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, m.ID, m.ConversationID, m.Role, m.Content).
		Scan(&m.CreatedAt)
}

// ListByConversation returns all messages oldest first. The transcript is
// totally ordered by created_at.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
