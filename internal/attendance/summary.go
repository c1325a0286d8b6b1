package attendance

import (
	"math"

	"github.com/traintrack/backend/internal/models"
)

// Summarize rolls records into present/absent counts with a rounded
// percentage. Percentage is 0 when there are no records.
func Summarize(records []models.AttendanceRecord) models.AttendanceSummary {
	var summary models.AttendanceSummary
	for _, rec := range records {
		switch rec.Status {
		case models.AttendancePresent:
			summary.PresentCount++
		case models.AttendanceAbsent:
			summary.AbsentCount++
		}
	}
	summary.Total = len(records)
	if summary.Total > 0 {
		summary.Percentage = int(math.Round(float64(summary.PresentCount) / float64(summary.Total) * 100))
	}
	return summary
}
