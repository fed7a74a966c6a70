package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// ExamKind separates timed exams from homework assignments. Both share the
// attempt lifecycle; homework uses a due date instead of a closing window.
type ExamKind string

const (
	ExamKindExam     ExamKind = "exam"
	ExamKindHomework ExamKind = "homework"
)

// UnlimitedAttempts is the AttemptsAllowed sentinel for "no limit".
const UnlimitedAttempts = -1

// Exam is an exam or homework assignment.
type Exam struct {
	ID                         uuid.UUID      `json:"id"`
	Kind                       ExamKind       `json:"kind"`
	Title                      string         `json:"title"`
	Description                string         `json:"description,omitempty"`
	AuthorID                   int            `json:"author_id"`
	AttemptsAllowed            int            `json:"attempts_allowed"`
	DurationMinutes            int            `json:"duration_minutes"`
	AvailableFrom              *time.Time     `json:"available_from,omitempty"`
	AvailableUntil             *time.Time     `json:"available_until,omitempty"`
	DueDate                    *time.Time     `json:"due_date,omitempty"`
	RandomizeQuestions         bool           `json:"randomize_questions"`
	RandomizeOptions           bool           `json:"randomize_options"`
	EnableProctoring           bool           `json:"enable_proctoring"`
	ProctoringWarningThreshold int            `json:"proctoring_warning_threshold"`
	ProctoringAutoTerminate    bool           `json:"proctoring_auto_terminate"`
	Status                     ExamStatus     `json:"status"`
	Questions                  []ExamQuestion `json:"questions,omitempty"`
	CreatedAt                  time.Time      `json:"created_at"`
	UpdatedAt                  time.Time      `json:"updated_at"`
}

// Unlimited reports whether the exam allows any number of attempts.
func (e *Exam) Unlimited() bool {
	return e.AttemptsAllowed == UnlimitedAttempts
}

// Question returns the exam item for questionID.
func (e *Exam) Question(questionID uuid.UUID) (ExamQuestion, bool) {
	for _, q := range e.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return ExamQuestion{}, false
}

// ExamQuestion links a bank question into an exam with an optional points
// override and a display order.
type ExamQuestion struct {
	ExamID     uuid.UUID `json:"exam_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Points     *int      `json:"points,omitempty"`
	OrderNum   int       `json:"order_num"`
	Question   Question  `json:"question"`
}

// EffectivePoints is the exam override when set, otherwise the bank points.
func (eq ExamQuestion) EffectivePoints() float64 {
	if eq.Points != nil {
		return float64(*eq.Points)
	}
	return float64(eq.Question.Points)
}

// CreateExamRequest is the payload for creating a new exam or homework.
type CreateExamRequest struct {
	Kind                       string     `json:"kind" binding:"required,oneof=exam homework"`
	Title                      string     `json:"title" binding:"required,min=3,max=255"`
	Description                string     `json:"description" binding:"omitempty,max=4000"`
	AttemptsAllowed            int        `json:"attempts_allowed" binding:"required,min=-1,ne=0,max=100"`
	DurationMinutes            int        `json:"duration_minutes" binding:"min=0,max=480"`
	AvailableFrom              *time.Time `json:"available_from" binding:"omitempty"`
	AvailableUntil             *time.Time `json:"available_until" binding:"omitempty,gtfield=AvailableFrom"`
	DueDate                    *time.Time `json:"due_date" binding:"omitempty"`
	RandomizeQuestions         bool       `json:"randomize_questions"`
	RandomizeOptions           bool       `json:"randomize_options"`
	EnableProctoring           bool       `json:"enable_proctoring"`
	ProctoringWarningThreshold int        `json:"proctoring_warning_threshold" binding:"min=0,max=100"`
	ProctoringAutoTerminate    bool       `json:"proctoring_auto_terminate"`
}

// AttachQuestionsRequest replaces the question list of a draft exam.
type AttachQuestionsRequest struct {
	Questions []AttachQuestionItem `json:"questions" binding:"required,min=1,dive"`
}

// AttachQuestionItem is one entry of AttachQuestionsRequest.
type AttachQuestionItem struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Points     *int      `json:"points" binding:"omitempty,min=1,max=1000"`
	OrderNum   int       `json:"order_num" binding:"min=0"`
}

// ExamPayload is the paper of one attempt as sent to the student (no answer
// keys).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Kind      ExamKind             `json:"kind"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without its answer key.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	QuestionType QuestionType    `json:"question_type"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options,omitempty"`
	Points       float64         `json:"points"`
	OrderNum     int             `json:"order_num"`
}
