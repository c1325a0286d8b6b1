package models

import (
	"time"

	"github.com/google/uuid"
)

// TrainingSession is a scheduled or live instructional event, distinct from
// a user's authentication session.
type TrainingSession struct {
	ID              uuid.UUID  `json:"id"`
	CourseID        uuid.UUID  `json:"course_id"`
	TrainerID       uuid.UUID  `json:"trainer_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ScheduledFor    time.Time  `json:"scheduled_for"`
	DurationMinutes int        `json:"duration_minutes"`
	IsActive        bool       `json:"is_active"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	StreamURL       string     `json:"stream_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SessionParticipant tracks one join/leave interval of a user in a live session.
type SessionParticipant struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	UserID    uuid.UUID  `json:"user_id"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}
