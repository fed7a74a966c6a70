package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType is the closed set of question kinds the grader understands.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
	QuestionTypeMatching       QuestionType = "matching"
	QuestionTypeRanking        QuestionType = "ranking"
	QuestionTypeDragDrop       QuestionType = "drag_drop"
	// QuestionTypeStem is a math/STEM free-text response.
	QuestionTypeStem QuestionType = "stem"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeShortAnswer,
	QuestionTypeEssay,
	QuestionTypeFillBlank,
	QuestionTypeMatching,
	QuestionTypeRanking,
	QuestionTypeDragDrop,
	QuestionTypeStem,
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ManualReview reports whether answers of this type are never auto-graded.
func (t QuestionType) ManualReview() bool {
	switch t {
	case QuestionTypeShortAnswer, QuestionTypeEssay, QuestionTypeStem:
		return true
	}
	return false
}

// Question is a reusable item in an author's question bank.
//
// Options and CorrectAnswer hold the type-specific encodings understood by
// the codec package; CorrectAnswers is only used by multi-select multiple
// choice questions.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	AuthorID       int             `json:"author_id"`
	Title          string          `json:"title"`
	QuestionText   string          `json:"question_text"`
	QuestionType   QuestionType    `json:"question_type"`
	Options        json.RawMessage `json:"options,omitempty"`
	CorrectAnswer  string          `json:"correct_answer,omitempty"`
	CorrectAnswers []string        `json:"correct_answers,omitempty"`
	Points         int             `json:"points"`
	Difficulty     string          `json:"difficulty,omitempty"`
	SubjectID      *int            `json:"subject_id,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	Title          string          `json:"title" binding:"omitempty,max=255"`
	QuestionText   string          `json:"question_text" binding:"required,min=1,max=4000"`
	QuestionType   string          `json:"question_type" binding:"required,question_type"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswer  string          `json:"correct_answer" binding:"omitempty,max=4000"`
	CorrectAnswers []string        `json:"correct_answers" binding:"omitempty,dive,len=1,alpha"`
	Points         int             `json:"points" binding:"required,min=1,max=1000"`
	Difficulty     string          `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	SubjectID      *int            `json:"subject_id" binding:"omitempty,min=1"`
	Explanation    string          `json:"explanation" binding:"omitempty,max=4000"`
}

// UpdateQuestionMetaRequest updates descriptive fields only; the answer key
// is immutable once a question exists so stored answers stay gradeable.
type UpdateQuestionMetaRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Difficulty  *string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Explanation *string `json:"explanation" binding:"omitempty,max=4000"`
	Points      *int    `json:"points" binding:"omitempty,min=1,max=1000"`
}
