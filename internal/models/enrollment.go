package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a user to a course with completion progress. One per
// (course, user).
type Enrollment struct {
	ID          uuid.UUID  `json:"id"`
	CourseID    uuid.UUID  `json:"course_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Progress    int        `json:"progress"` // 0..100
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EnrollmentStats aggregates enrollment counts for the trainer dashboard.
type EnrollmentStats struct {
	TotalEnrollments int     `json:"total_enrollments"`
	CompletedCount   int     `json:"completed_count"`
	InProgressCount  int     `json:"in_progress_count"`
	AverageProgress  float64 `json:"average_progress"`
}
