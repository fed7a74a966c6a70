package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerInput is the stored encoding of a student's response. Which fields
// are populated depends on the question type.
type AnswerInput struct {
	AnswerText      string   `json:"answer_text,omitempty"`
	SelectedOption  *string  `json:"selected_option,omitempty"`
	SelectedOptions []string `json:"selected_options,omitempty"`
}

// Empty reports whether no response was given.
func (a AnswerInput) Empty() bool {
	return a.AnswerText == "" && a.SelectedOption == nil && len(a.SelectedOptions) == 0
}

// Answer is a graded (or review-pending) response to one exam question.
type Answer struct {
	ID                   uuid.UUID    `json:"id"`
	SubmissionID         uuid.UUID    `json:"submission_id"`
	QuestionID           uuid.UUID    `json:"question_id"`
	QuestionType         QuestionType `json:"question_type"`
	AnswerText           string       `json:"answer_text,omitempty"`
	SelectedOption       *string      `json:"selected_option,omitempty"`
	SelectedOptions      []string     `json:"selected_options,omitempty"`
	Score                *float64     `json:"score,omitempty"`
	MaxScore             float64      `json:"max_score"`
	RequiresManualReview bool         `json:"requires_manual_review"`
	// DecodeError keeps the reason a stored answer could not be decoded so a
	// reviewer can see why it scored zero.
	DecodeError string     `json:"decode_error,omitempty"`
	Feedback    *string    `json:"feedback,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
	GradedBy    *int       `json:"graded_by,omitempty"`
}

// Input returns the stored response fields of the answer.
func (a *Answer) Input() AnswerInput {
	return AnswerInput{
		AnswerText:      a.AnswerText,
		SelectedOption:  a.SelectedOption,
		SelectedOptions: a.SelectedOptions,
	}
}

// AwaitingReview reports whether the answer still needs a human score.
func (a *Answer) AwaitingReview() bool {
	return a.RequiresManualReview && a.Score == nil
}

// GradeAnswerRequest is the instructor payload for manual grading.
type GradeAnswerRequest struct {
	Score    *float64 `json:"score" binding:"required,min=0"`
	Feedback *string  `json:"feedback" binding:"omitempty,max=4000"`
}

// ReviewedAnswer pairs an answer with its human-readable rendering.
type ReviewedAnswer struct {
	Answer
	Rendered string `json:"rendered"`
	// RenderError is set when the stored response could not be decoded.
	RenderError string `json:"render_error,omitempty"`
}

// SubmissionReview is the instructor view of a finalized attempt.
type SubmissionReview struct {
	Submission Submission       `json:"submission"`
	Answers    []ReviewedAnswer `json:"answers"`
}
