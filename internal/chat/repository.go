package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles chat message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts a chat message. Duplicate ids are ignored so a retried send
// stores a single row.
func (r *Repository) Save(ctx context.Context, m *models.ChatMessage) error {
	const query = `INSERT INTO chat_messages (id, session_id, user_id, username, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, m.ID, m.SessionID, m.UserID, m.Username, m.Text, m.Timestamp)
	return err
}

// ListBySession returns a session's messages in send order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	const query = `SELECT id, session_id, user_id, username, body, sent_at
		FROM chat_messages WHERE session_id = $1 ORDER BY sent_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Username, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
