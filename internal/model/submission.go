package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates attempt lifecycle states.
type SubmissionStatus string

const (
	SubmissionStatusInProgress SubmissionStatus = "in_progress"
	// SubmissionStatusSubmitted is held only while the grading pass runs.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

// Submission is one student attempt at an exam or homework.
type Submission struct {
	ID                   uuid.UUID        `json:"id"`
	ExamID               uuid.UUID        `json:"exam_id"`
	StudentID            int              `json:"student_id"`
	AttemptNumber        int              `json:"attempt_number"`
	StartedAt            time.Time        `json:"started_at"`
	SubmittedAt          *time.Time       `json:"submitted_at,omitempty"`
	TimeTakenSeconds     int              `json:"time_taken_seconds"`
	Status               SubmissionStatus `json:"status"`
	IsLate               bool             `json:"is_late"`
	IsHighestScore       bool             `json:"is_highest_score"`
	TotalScore           *float64         `json:"total_score,omitempty"`
	MaxScore             float64          `json:"max_score"`
	ProgressData         *ProgressData    `json:"progress_data,omitempty"`
	LastSavedAt          *time.Time       `json:"last_saved_at,omitempty"`
	TimeRemainingSeconds *int             `json:"time_remaining_seconds,omitempty"`
	ProctoringData       ProctoringData   `json:"proctoring_data"`
	Layout               *AttemptLayout   `json:"layout,omitempty"`
}

// InProgress reports whether the attempt still accepts answers.
func (s *Submission) InProgress() bool {
	return s.Status == SubmissionStatusInProgress
}

// Finalized reports whether the attempt has been submitted and graded at
// least automatically.
func (s *Submission) Finalized() bool {
	return s.Status == SubmissionStatusGraded || s.Status == SubmissionStatusPending
}

// ScoreRatio is TotalScore/MaxScore, zero when either is missing.
func (s *Submission) ScoreRatio() float64 {
	if s.TotalScore == nil || s.MaxScore <= 0 {
		return 0
	}
	return *s.TotalScore / s.MaxScore
}

// ProgressData is the autosave snapshot of an in-progress attempt.
type ProgressData struct {
	Answers              map[uuid.UUID]AnswerInput `json:"answers"`
	CurrentQuestionIndex int                       `json:"current_question_index"`
	TimeRemainingSeconds *int                      `json:"time_remaining_seconds,omitempty"`
}

// AttemptLayout is the per-attempt presentation order derived when an exam
// randomizes questions or multiple choice options.
type AttemptLayout struct {
	QuestionOrder []uuid.UUID `json:"question_order"`
	// OptionOrder maps a question to the permutation of its choices:
	// displayed position i shows canonical option OptionOrder[q][i].
	OptionOrder map[uuid.UUID][]int `json:"option_order,omitempty"`
}

// SaveProgressRequest is the autosave payload.
type SaveProgressRequest struct {
	Answers              map[uuid.UUID]AnswerInput `json:"answers" binding:"required"`
	CurrentQuestionIndex int                       `json:"current_question_index" binding:"min=0"`
	TimeRemainingSeconds *int                      `json:"time_remaining_seconds" binding:"omitempty,min=0"`
}

// SubmitAttemptRequest finalizes an attempt. Answers not present fall back to
// the latest autosave snapshot.
type SubmitAttemptRequest struct {
	Answers map[uuid.UUID]AnswerInput `json:"answers"`
}

// AttemptView is the student-facing projection of a Submission.
type AttemptView struct {
	ID                   uuid.UUID        `json:"id"`
	ExamID               uuid.UUID        `json:"exam_id"`
	AttemptNumber        int              `json:"attempt_number"`
	StartedAt            time.Time        `json:"started_at"`
	SubmittedAt          *time.Time       `json:"submitted_at,omitempty"`
	TimeTakenSeconds     int              `json:"time_taken_seconds"`
	Status               SubmissionStatus `json:"status"`
	IsLate               bool             `json:"is_late"`
	IsHighestScore       bool             `json:"is_highest_score"`
	TotalScore           *float64         `json:"total_score,omitempty"`
	MaxScore             float64          `json:"max_score"`
	TimeRemainingSeconds *int             `json:"time_remaining_seconds,omitempty"`
}

// ProgressSnapshot is the autosave record cached in Redis and queued for
// PostgreSQL. SavedAt orders snapshots of the same attempt.
type ProgressSnapshot struct {
	SubmissionID uuid.UUID    `json:"submission_id"`
	Progress     ProgressData `json:"progress"`
	SavedAt      time.Time    `json:"saved_at"`
}
