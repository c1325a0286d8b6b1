package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles training session persistence and participant logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, course_id, trainer_id, title, description, scheduled_for, duration_minutes, is_active, started_at, ended_at, stream_url, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }, s *models.TrainingSession) error {
	return row.Scan(&s.ID, &s.CourseID, &s.TrainerID, &s.Title, &s.Description, &s.ScheduledFor, &s.DurationMinutes,
		&s.IsActive, &s.StartedAt, &s.EndedAt, &s.StreamURL, &s.CreatedAt, &s.UpdatedAt)
}

// Create inserts a new training session.
func (r *Repository) Create(ctx context.Context, s *models.TrainingSession) error {
	const q = `INSERT INTO training_sessions (course_id, trainer_id, title, description, scheduled_for, duration_minutes, stream_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, s.CourseID, s.TrainerID, s.Title, s.Description, s.ScheduledFor, s.DurationMinutes, s.StreamURL), s)
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.TrainingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM training_sessions WHERE id = $1`
	var s models.TrainingSession
	if err := scanSession(r.pool.QueryRow(ctx, q, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns sessions currently live.
func (r *Repository) ListActive(ctx context.Context) ([]models.TrainingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM training_sessions WHERE is_active ORDER BY started_at DESC`
	return r.list(ctx, q)
}

// ListScheduled returns upcoming sessions that have not started.
func (r *Repository) ListScheduled(ctx context.Context) ([]models.TrainingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM training_sessions
		WHERE NOT is_active AND ended_at IS NULL AND scheduled_for > NOW() ORDER BY scheduled_for ASC`
	return r.list(ctx, q)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.TrainingSession, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TrainingSession
	for rows.Next() {
		var s models.TrainingSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update updates mutable session fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, streamURL string, durationMinutes int) error {
	const q = `UPDATE training_sessions SET title = $1, description = $2, stream_url = $3, duration_minutes = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, title, description, streamURL, durationMinutes, id)
	return err
}

// Start marks a session live.
func (r *Repository) Start(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE training_sessions SET is_active = TRUE, started_at = NOW(), updated_at = NOW() WHERE id = $1 AND NOT is_active`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// End marks a session over.
func (r *Repository) End(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE training_sessions SET is_active = FALSE, ended_at = NOW(), updated_at = NOW() WHERE id = $1 AND is_active`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// LogJoin inserts a participant row when a user joins the live session.
func (r *Repository) LogJoin(ctx context.Context, sessionID, userID uuid.UUID) error {
	const q = `INSERT INTO session_participants (session_id, user_id, joined_at) VALUES ($1, $2, NOW())`
	_, err := r.pool.Exec(ctx, q, sessionID, userID)
	return err
}

// LogLeave closes the most recent open participant row for the user.
func (r *Repository) LogLeave(ctx context.Context, sessionID, userID uuid.UUID) error {
	const q = `UPDATE session_participants p SET left_at = NOW()
		FROM (SELECT id FROM session_participants WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL ORDER BY joined_at DESC LIMIT 1) AS sub
		WHERE p.id = sub.id`
	_, err := r.pool.Exec(ctx, q, sessionID, userID)
	return err
}

// ParticipantIDs returns the distinct users who appeared in the session.
func (r *Repository) ParticipantIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT DISTINCT user_id FROM session_participants WHERE session_id = $1`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListParticipants returns join/leave intervals for the attendee view.
func (r *Repository) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.SessionParticipant, error) {
	const q = `SELECT id, session_id, user_id, joined_at, left_at
		FROM session_participants WHERE session_id = $1 ORDER BY joined_at DESC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionParticipant
	for rows.Next() {
		var p models.SessionParticipant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
