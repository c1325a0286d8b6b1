package materials

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traintrack/backend/internal/models"
)

// Repository handles course material persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a materials repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a material row.
func (r *Repository) Create(ctx context.Context, m *models.Material) error {
	const query = `INSERT INTO materials (id, course_id, filename, s3_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, query, m.ID, m.CourseID, m.Filename, m.S3Key, m.ContentType, m.SizeBytes, m.UploadedBy).
		Scan(&m.CreatedAt)
}

// GetByID returns a material by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	const query = `SELECT id, course_id, filename, s3_key, content_type, size_bytes, uploaded_by, created_at
		FROM materials WHERE id = $1`
	var m models.Material
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&m.ID, &m.CourseID, &m.Filename, &m.S3Key, &m.ContentType, &m.SizeBytes, &m.UploadedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByCourse returns a course's materials, newest first.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Material, error) {
	const query = `SELECT id, course_id, filename, s3_key, content_type, size_bytes, uploaded_by, created_at
		FROM materials WHERE course_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Filename, &m.S3Key, &m.ContentType, &m.SizeBytes, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a material row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	return err
}
