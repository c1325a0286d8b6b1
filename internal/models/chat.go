package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one message in a live session's chat. The ID is generated by
// the sending client so the same message can be recognized across the
// optimistic local copy and the server echo.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
