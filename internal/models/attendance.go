package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is present or absent. Nothing in between.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ParseAttendanceStatus validates a status string.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch s {
	case "present", "Present":
		return AttendancePresent, nil
	case "absent", "Absent":
		return AttendanceAbsent, nil
	default:
		return "", fmt.Errorf("unknown attendance status %q", s)
	}
}

// AttendanceRecord marks a user present or absent for a course on a date.
// SessionID is set when the record came out of a live session report.
type AttendanceRecord struct {
	ID         uuid.UUID        `json:"id"`
	CourseID   uuid.UUID        `json:"course_id"`
	SessionID  *uuid.UUID       `json:"session_id,omitempty"`
	UserID     uuid.UUID        `json:"user_id"`
	Date       time.Time        `json:"date"`
	Status     AttendanceStatus `json:"status"`
	RecordedBy uuid.UUID        `json:"recorded_by"`
	CreatedAt  time.Time        `json:"created_at"`
}

// AttendanceSummary is the present/absent rollup shown on the attendance page.
type AttendanceSummary struct {
	PresentCount int `json:"present_count"`
	AbsentCount  int `json:"absent_count"`
	Total        int `json:"total"`
	Percentage   int `json:"percentage"` // rounded, 0 when Total is 0
}
