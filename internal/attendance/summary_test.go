package attendance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traintrack/backend/internal/models"
)

func records(statuses ...models.AttendanceStatus) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, len(statuses))
	for i, s := range statuses {
		out[i].Status = s
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.Total)
	require.Zero(t, s.Percentage)
}

func TestSummarizeCountsAndPercentage(t *testing.T) {
	s := Summarize(records(
		models.AttendancePresent,
		models.AttendancePresent,
		models.AttendanceAbsent,
	))
	require.Equal(t, 2, s.PresentCount)
	require.Equal(t, 1, s.AbsentCount)
	require.Equal(t, 3, s.Total)
	require.Equal(t, 67, s.Percentage, "2/3 rounds to 67")
}

func TestSummarizeAllPresent(t *testing.T) {
	s := Summarize(records(models.AttendancePresent, models.AttendancePresent))
	require.Equal(t, 100, s.Percentage)
	require.Zero(t, s.AbsentCount)
}
