package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/traintrack/backend/internal/models"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event names on the wire. Intents are client-to-server, the rest are
// server-to-client.
const (
	EventJoinSession      = "join-session"
	EventSubmitQuestion   = "submit-question"
	EventEndQuestion      = "end-question"
	EventSubmitAnswer     = "submit-answer"
	EventChatMessage      = "chat-message"
	EventQuestion         = "question"
	EventQuestionEnded    = "question-ended"
	EventResponseStats    = "response-stats"
	EventParticipantCount = "participant-count"
	EventSync             = "sync"
	EventError            = "error"
)

// JoinSessionPayload is the data for a join-session intent.
type JoinSessionPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
}

// SubmitQuestionPayload is the data for a submit-question intent.
type SubmitQuestionPayload struct {
	SessionID uuid.UUID           `json:"sessionId"`
	Question  models.LiveQuestion `json:"question"`
}

// EndQuestionPayload is the data for an end-question intent.
type EndQuestionPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
}

// SubmitAnswerPayload is the data for a submit-answer intent.
type SubmitAnswerPayload struct {
	SessionID  uuid.UUID `json:"sessionId"`
	QuestionID string    `json:"questionId"`
	Answer     int       `json:"answer"`
}

// ParticipantCountPayload carries the current audience size for a session.
type ParticipantCountPayload struct {
	Count int `json:"count"`
}

// SyncPayload is sent to a client right after it joins (or rejoins) a session
// so it can resynchronize: the active question, and for presenters the
// current response stats.
type SyncPayload struct {
	Question         *models.LiveQuestion  `json:"question,omitempty"`
	Stats            *models.ResponseStats `json:"stats,omitempty"`
	ParticipantCount int                   `json:"participantCount"`
}

// ErrorPayload is sent to a client when an intent is rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
