package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/traintrack/backend/internal/models"
)

func question(id string, options ...string) models.LiveQuestion {
	return models.LiveQuestion{ID: id, Title: "T " + id, Options: options}
}

func TestLaunchReplacesOpenQuestion(t *testing.T) {
	tr := NewQuestionTracker()
	sessionID := uuid.New()

	require.Nil(t, tr.Launch(sessionID, question("q1", "A", "B")))

	userID := uuid.New()
	_, accepted := tr.RecordAnswer(sessionID, userID, "q1", 0)
	require.True(t, accepted)

	replaced := tr.Launch(sessionID, question("q2", "X", "Y"))
	require.NotNil(t, replaced)
	require.Equal(t, "q1", replaced.Question.ID)
	require.Equal(t, 1, replaced.Stats.ResponseCount)

	active, _ := tr.Active(sessionID)
	require.Equal(t, "q2", active.ID)
}

func TestRecordAnswerFirstWins(t *testing.T) {
	tr := NewQuestionTracker()
	sessionID := uuid.New()
	userID := uuid.New()
	tr.Launch(sessionID, question("q1", "A", "B", "C"))

	stats, accepted := tr.RecordAnswer(sessionID, userID, "q1", 2)
	require.True(t, accepted)
	require.Equal(t, 1, stats.ResponseCount)
	require.Equal(t, map[int]int{2: 1}, stats.AnswerDistribution)

	_, accepted = tr.RecordAnswer(sessionID, userID, "q1", 0)
	require.False(t, accepted, "second answer from the same user is dropped")

	stats, accepted = tr.RecordAnswer(sessionID, uuid.New(), "q1", 2)
	require.True(t, accepted)
	require.Equal(t, 2, stats.ResponseCount)
	require.Equal(t, map[int]int{2: 2}, stats.AnswerDistribution)
}

func TestRecordAnswerValidation(t *testing.T) {
	tr := NewQuestionTracker()
	sessionID := uuid.New()
	tr.Launch(sessionID, question("q1", "A", "B"))

	_, accepted := tr.RecordAnswer(sessionID, uuid.New(), "other", 0)
	require.False(t, accepted, "stale question id")

	_, accepted = tr.RecordAnswer(sessionID, uuid.New(), "q1", 2)
	require.False(t, accepted, "option out of range")

	_, accepted = tr.RecordAnswer(uuid.New(), uuid.New(), "q1", 0)
	require.False(t, accepted, "unknown session")
}

func TestEndIsIdempotent(t *testing.T) {
	tr := NewQuestionTracker()
	sessionID := uuid.New()
	tr.Launch(sessionID, question("q1", "A", "B"))

	ended := tr.End(sessionID)
	require.NotNil(t, ended)
	require.Equal(t, "q1", ended.Question.ID)
	require.False(t, ended.EndedAt.Before(ended.LaunchedAt))

	require.Nil(t, tr.End(sessionID))
	active, stats := tr.Active(sessionID)
	require.Nil(t, active)
	require.Nil(t, stats)
}

func TestNormalizeQuestion(t *testing.T) {
	_, valid := normalizeQuestion(models.LiveQuestion{Title: "Q", Options: []string{"A", " ", ""}})
	require.False(t, valid, "fewer than two non-empty options")

	_, valid = normalizeQuestion(models.LiveQuestion{Title: "  ", Options: []string{"A", "B"}})
	require.False(t, valid, "blank title")

	q, valid := normalizeQuestion(models.LiveQuestion{Title: " Q ", Options: []string{" A ", "", "B"}, CorrectOption: 2})
	require.True(t, valid)
	require.Equal(t, "Q", q.Title)
	require.Equal(t, []string{"A", "B"}, q.Options)
	require.Equal(t, 0, q.CorrectOption, "index past the filtered list clamps to 0")
	require.NotEmpty(t, q.ID)
}
