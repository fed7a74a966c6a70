package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionSubmit    Action = "submit"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestPayload carries every client action. Which fields are read depends
// on Action.
type RequestPayload struct {
	Action Action `json:"action"`

	// autosave
	Answers              map[uuid.UUID]model.AnswerInput `json:"answers,omitempty"`
	CurrentQuestionIndex int                             `json:"current_question_index,omitempty"`
	TimeRemainingSeconds *int                            `json:"time_remaining_seconds,omitempty"`

	// violation
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventGraded     Event = "graded"
	EventViolation  Event = "violation"
	EventTerminated Event = "terminated"
	EventPong       Event = "pong"
)

type SavedResponse struct {
	Event   Event  `json:"event"`
	SavedAt string `json:"saved_at"`
}

type GradedResponse struct {
	Event      Event                  `json:"event"`
	Status     model.SubmissionStatus `json:"status"`
	TotalScore *float64               `json:"total_score,omitempty"`
	MaxScore   float64                `json:"max_score"`
	IsLate     bool                   `json:"is_late"`
}

type ViolationResponse struct {
	Event Event `json:"event"`
	model.ViolationOutcome
}

type ErrorResponse struct {
	Event  Event  `json:"event"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
