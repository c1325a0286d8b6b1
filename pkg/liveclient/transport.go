package liveclient

import (
	"context"
	"encoding/json"
)

// Envelope is the wire message: an event name plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event names on the wire. Intents go out, the rest come in.
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

// Transport carries envelopes to and from the server. Implementations must
// deliver inbound envelopes to onEvent in arrival order and call onClose
// exactly once when the connection drops for any reason other than Close.
type Transport interface {
	// Connect dials with the given credential and starts delivering events.
	Connect(ctx context.Context, token string, onEvent func(Envelope), onClose func(error)) error
	// Send writes one envelope. It fails when not connected.
	Send(Envelope) error
	// Close tears the connection down. Idempotent. onClose is not called
	// for a connection ended by Close.
	Close() error
}

func envelope(event string, payload interface{}) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}
