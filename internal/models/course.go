package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a catalog entry users can enroll in.
type Course struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Level         string    `json:"level"` // "beginner", "intermediate", "advanced"
	DurationHours int       `json:"duration_hours"`
	TrainerID     uuid.UUID `json:"trainer_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Material is a course file stored in S3 (slides, documents, recordings).
type Material struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Filename    string    `json:"filename"`
	S3Key       string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
