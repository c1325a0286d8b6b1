package courses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles course persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a courses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, course *models.Course) error {
	const q = `INSERT INTO courses (title, description, category, level, duration_hours, trainer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, course.Title, course.Description, course.Category, course.Level, course.DurationHours, course.TrainerID).
		Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
}

// GetByID returns a course by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	const q = `SELECT id, title, description, category, level, duration_hours, trainer_id, created_at, updated_at
		FROM courses WHERE id = $1`
	var course models.Course
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&course.ID, &course.Title, &course.Description, &course.Category, &course.Level, &course.DurationHours, &course.TrainerID, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns all courses, optionally filtered by trainer.
func (r *Repository) List(ctx context.Context, trainerID *uuid.UUID) ([]models.Course, error) {
	base := `SELECT id, title, description, category, level, duration_hours, trainer_id, created_at, updated_at FROM courses`
	var args []interface{}
	if trainerID != nil {
		base += ` WHERE trainer_id = $1`
		args = append(args, *trainerID)
	}
	rows, err := r.pool.Query(ctx, base+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(&course.ID, &course.Title, &course.Description, &course.Category, &course.Level, &course.DurationHours, &course.TrainerID, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, course)
	}
	return list, rows.Err()
}

// Update updates course fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, category, level string, durationHours int) error {
	const q = `UPDATE courses SET title = $1, description = $2, category = $3, level = $4, duration_hours = $5, updated_at = NOW() WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, title, description, category, level, durationHours, id)
	return err
}

// Delete removes a course by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM courses WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// IsOwner returns true if the user is the course's trainer.
func (r *Repository) IsOwner(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	course, err := r.GetByID(ctx, courseID)
	if err != nil {
		return false, err
	}
	return course.TrainerID == userID, nil
}
