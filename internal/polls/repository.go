package polls

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles question history persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record stores a closed question's final state. Re-recording the same
// question updates the counts, so a question replaced and later re-ended
// keeps a single row.
func (r *Repository) Record(ctx context.Context, rec *models.QuestionRecord) error {
	options, err := json.Marshal(rec.Options)
	if err != nil {
		return err
	}
	const query = `INSERT INTO question_records (session_id, question_id, title, options, correct_option, response_count, launched_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, question_id) DO UPDATE SET
			response_count = EXCLUDED.response_count,
			ended_at = EXCLUDED.ended_at
		RETURNING id`
	return r.pool.QueryRow(ctx, query,
		rec.SessionID, rec.QuestionID, rec.Title, options, rec.CorrectOption,
		rec.ResponseCount, rec.LaunchedAt, rec.EndedAt,
	).Scan(&rec.ID)
}

// ListBySession returns a session's question history in launch order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.QuestionRecord, error) {
	const query = `SELECT id, session_id, question_id, title, options, correct_option, response_count, launched_at, ended_at
		FROM question_records WHERE session_id = $1 ORDER BY launched_at ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuestionRecord
	for rows.Next() {
		var rec models.QuestionRecord
		var options []byte
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.QuestionID, &rec.Title, &options,
			&rec.CorrectOption, &rec.ResponseCount, &rec.LaunchedAt, &rec.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &rec.Options); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
