package enrollments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles enrollment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an enrollments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new enrollment. Fails on the (course_id, user_id) unique
// constraint when the user is already enrolled.
func (r *Repository) Create(ctx context.Context, courseID, userID uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO enrollments (course_id, user_id)
		VALUES ($1, $2)
		RETURNING id, course_id, user_id, progress, completed, completed_at, created_at, updated_at`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, courseID, userID).
		Scan(&e.ID, &e.CourseID, &e.UserID, &e.Progress, &e.Completed, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID returns an enrollment by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	const q = `SELECT id, course_id, user_id, progress, completed, completed_at, created_at, updated_at
		FROM enrollments WHERE id = $1`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.CourseID, &e.UserID, &e.Progress, &e.Completed, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns a user's enrollments.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	const q = `SELECT id, course_id, user_id, progress, completed, completed_at, created_at, updated_at
		FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.CourseID, &e.UserID, &e.Progress, &e.Completed, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpdateProgress sets progress (0..100). Progress 100 also marks completion.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	const q = `UPDATE enrollments SET progress = $1,
		completed = ($1 >= 100),
		completed_at = CASE WHEN $1 >= 100 AND completed_at IS NULL THEN NOW() ELSE completed_at END,
		updated_at = NOW()
		WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, progress, id)
	return err
}

// MarkCompleted sets the enrollment to completed with 100% progress.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE enrollments SET progress = 100, completed = TRUE,
		completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Stats returns aggregate enrollment numbers, optionally scoped to one
// trainer's courses.
func (r *Repository) Stats(ctx context.Context, trainerID *uuid.UUID) (*models.EnrollmentStats, error) {
	q := `SELECT COUNT(*), COUNT(*) FILTER (WHERE e.completed), COALESCE(AVG(e.progress), 0)
		FROM enrollments e`
	var args []interface{}
	if trainerID != nil {
		q += ` JOIN courses c ON c.id = e.course_id WHERE c.trainer_id = $1`
		args = append(args, *trainerID)
	}
	var stats models.EnrollmentStats
	err := r.pool.QueryRow(ctx, q, args...).Scan(&stats.TotalEnrollments, &stats.CompletedCount, &stats.AverageProgress)
	if err != nil {
		return nil, err
	}
	stats.InProgressCount = stats.TotalEnrollments - stats.CompletedCount
	return &stats, nil
}
