package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles attendance persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record upserts an attendance record for (course, user, date). Re-recording
// the same day replaces the status.
func (r *Repository) Record(ctx context.Context, rec *models.AttendanceRecord) error {
	const q = `INSERT INTO attendance_records (course_id, session_id, user_id, date, status, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, user_id, date) DO UPDATE SET status = EXCLUDED.status, session_id = EXCLUDED.session_id, recorded_by = EXCLUDED.recorded_by
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, rec.CourseID, rec.SessionID, rec.UserID, rec.Date, string(rec.Status), rec.RecordedBy).
		Scan(&rec.ID, &rec.CreatedAt)
}

// ListByCourse returns all attendance records for a course.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.AttendanceRecord, error) {
	const q = `SELECT id, course_id, session_id, user_id, date, status, recorded_by, created_at
		FROM attendance_records WHERE course_id = $1 ORDER BY date DESC, created_at DESC`
	return r.list(ctx, q, courseID)
}

// ListByUser returns all attendance records for a user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AttendanceRecord, error) {
	const q = `SELECT id, course_id, session_id, user_id, date, status, recorded_by, created_at
		FROM attendance_records WHERE user_id = $1 ORDER BY date DESC, created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *Repository) list(ctx context.Context, q string, arg interface{}) ([]models.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.CourseID, &rec.SessionID, &rec.UserID, &rec.Date, &status, &rec.RecordedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = models.AttendanceStatus(status)
		list = append(list, rec)
	}
	return list, rows.Err()
}

// RecordSessionReport writes attendance for everyone who appeared in a live
// session's participant log, dated to the session day. Used by the worker
// after a session ends.
func (r *Repository) RecordSessionReport(ctx context.Context, courseID, sessionID, recordedBy uuid.UUID, date time.Time, userIDs []uuid.UUID) error {
	for _, userID := range userIDs {
		rec := &models.AttendanceRecord{
			CourseID:   courseID,
			SessionID:  &sessionID,
			UserID:     userID,
			Date:       date,
			Status:     models.AttendancePresent,
			RecordedBy: recordedBy,
		}
		if err := r.Record(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
