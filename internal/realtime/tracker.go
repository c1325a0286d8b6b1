package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/traintrack/backend/internal/models"
)

// openQuestion is the live state of one session's active question.
type openQuestion struct {
	question   models.LiveQuestion
	launchedAt time.Time
	answers    map[uuid.UUID]int // userID -> option index, first answer wins
}

// EndedQuestion is the snapshot handed to the recorder when a question closes.
type EndedQuestion struct {
	SessionID  uuid.UUID
	Question   models.LiveQuestion
	Stats      models.ResponseStats
	LaunchedAt time.Time
	EndedAt    time.Time
}

// QuestionTracker tracks the active question per live session: at most one
// question is open per session at a time, and each participant's answer is
// counted once. The tracker is thread-safe.
type QuestionTracker struct {
	mu   sync.Mutex
	open map[uuid.UUID]*openQuestion // sessionID -> active question
}

// NewQuestionTracker creates an empty tracker.
func NewQuestionTracker() *QuestionTracker {
	return &QuestionTracker{open: make(map[uuid.UUID]*openQuestion)}
}

// Launch opens a question for a session. A question already open is replaced
// and returned as an ended snapshot so it can be persisted.
func (t *QuestionTracker) Launch(sessionID uuid.UUID, q models.LiveQuestion) *EndedQuestion {
	t.mu.Lock()
	defer t.mu.Unlock()

	var replaced *EndedQuestion
	if prev, ok := t.open[sessionID]; ok {
		replaced = prev.snapshot(sessionID)
	}
	t.open[sessionID] = &openQuestion{
		question:   q,
		launchedAt: time.Now(),
		answers:    make(map[uuid.UUID]int),
	}
	return replaced
}

// RecordAnswer counts a participant's answer to the active question. It
// returns the updated stats and true when the answer was accepted; false when
// there is no active question, the question id does not match, the option is
// out of range, or the user already answered.
func (t *QuestionTracker) RecordAnswer(sessionID, userID uuid.UUID, questionID string, option int) (*models.ResponseStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open, ok := t.open[sessionID]
	if !ok || open.question.ID != questionID {
		return nil, false
	}
	if option < 0 || option >= len(open.question.Options) {
		return nil, false
	}
	if _, answered := open.answers[userID]; answered {
		return nil, false
	}
	open.answers[userID] = option
	stats := open.stats()
	return &stats, true
}

// End closes the active question for a session, returning its snapshot, or
// nil when no question is open. Ending is idempotent.
func (t *QuestionTracker) End(sessionID uuid.UUID) *EndedQuestion {
	t.mu.Lock()
	defer t.mu.Unlock()

	open, ok := t.open[sessionID]
	if !ok {
		return nil
	}
	delete(t.open, sessionID)
	return open.snapshot(sessionID)
}

// Active returns the session's open question and its stats, or nil when none.
func (t *QuestionTracker) Active(sessionID uuid.UUID) (*models.LiveQuestion, *models.ResponseStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open, ok := t.open[sessionID]
	if !ok {
		return nil, nil
	}
	q := open.question
	stats := open.stats()
	return &q, &stats
}

func (o *openQuestion) stats() models.ResponseStats {
	dist := make(map[int]int, len(o.question.Options))
	for _, option := range o.answers {
		dist[option]++
	}
	return models.ResponseStats{ResponseCount: len(o.answers), AnswerDistribution: dist}
}

func (o *openQuestion) snapshot(sessionID uuid.UUID) *EndedQuestion {
	return &EndedQuestion{
		SessionID:  sessionID,
		Question:   o.question,
		Stats:      o.stats(),
		LaunchedAt: o.launchedAt,
		EndedAt:    time.Now(),
	}
}
