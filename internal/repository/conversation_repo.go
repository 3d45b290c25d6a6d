package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-chat-backend/internal/models"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()

	query := `INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.ID, c.UserID, c.Title).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	c := &models.Conversation{}
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUser returns the user's conversations, most recently active first,
// which is the order the sidebar shows them in.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		c := &models.Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

// Touch refreshes updated_at. NOW() keeps the timestamp monotonic even when
// two exchanges on the same conversation interleave.
func (r *ConversationRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE conversations SET updated_at = NOW() WHERE id = $1", id)
	return err
}

// Delete removes the conversation; its messages go with it via the FK cascade.
func (r *ConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM conversations WHERE id = $1", id)
	return err
}
