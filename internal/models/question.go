package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveQuestion is the poll unit broadcast during a live session: a title, an
// ordered list of options and the index of the correct one. At most one is
// active per session at a time.
type LiveQuestion struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// ResponseStats is the answer rollup pushed to presenters while a question is
// open. AnswerDistribution maps option index to count.
type ResponseStats struct {
	ResponseCount      int         `json:"responseCount"`
	AnswerDistribution map[int]int `json:"answerDistribution"`
}

// QuestionRecord is the persisted history of a launched question, written when
// the question ends.
type QuestionRecord struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	QuestionID    string    `json:"question_id"`
	Title         string    `json:"title"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	ResponseCount int       `json:"response_count"`
	LaunchedAt    time.Time `json:"launched_at"`
	EndedAt       time.Time `json:"ended_at"`
}
