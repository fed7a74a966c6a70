package model

import (
	"time"

	"github.com/google/uuid"
)

// Violation is a single proctoring signal reported by the client.
type Violation struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// ProctoringData accumulates violations for one attempt.
type ProctoringData struct {
	Violations                []Violation    `json:"violations"`
	TotalViolations           int            `json:"total_violations"`
	CountsByType              map[string]int `json:"counts_by_type"`
	IsTerminatedForViolations bool           `json:"is_terminated_for_violations"`
	TerminatedAt              *time.Time     `json:"terminated_at,omitempty"`
}

// ViolationEvent is the audit record pushed to the violation queue.
type ViolationEvent struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	ExamID       uuid.UUID `json:"exam_id"`
	StudentID    int       `json:"student_id"`
	Violation
}

// RecordViolationRequest is the client payload for reporting a violation.
type RecordViolationRequest struct {
	Type        string `json:"type" binding:"required,min=1,max=64"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// ViolationOutcome is returned to the client after a violation is recorded.
type ViolationOutcome struct {
	TotalViolations int    `json:"total_violations"`
	Severity        string `json:"severity"`
	Terminated      bool   `json:"terminated"`
	WarningsLeft    int    `json:"warnings_left"`
}

// MonitorEventType names the live monitor events published per exam.
type MonitorEventType string

const (
	MonitorEventAttemptStarted  MonitorEventType = "attempt_started"
	MonitorEventViolation       MonitorEventType = "violation"
	MonitorEventAttemptFinished MonitorEventType = "attempt_finished"
)

// MonitorEvent is published on the exam monitor channel and forwarded to
// instructors over SSE.
type MonitorEvent struct {
	Type            MonitorEventType  `json:"type"`
	ExamID          uuid.UUID         `json:"exam_id"`
	SubmissionID    uuid.UUID         `json:"submission_id"`
	StudentID       int               `json:"student_id"`
	Status          *SubmissionStatus `json:"status,omitempty"`
	TotalScore      *float64          `json:"total_score,omitempty"`
	MaxScore        *float64          `json:"max_score,omitempty"`
	TotalViolations *int              `json:"total_violations,omitempty"`
	Severity        string            `json:"severity,omitempty"`
	Terminated      bool              `json:"terminated,omitempty"`
	At              time.Time         `json:"at"`
}

// AttemptResult is queued when an attempt is finalized or regraded.
type AttemptResult struct {
	SubmissionID uuid.UUID        `json:"submission_id"`
	ExamID       uuid.UUID        `json:"exam_id"`
	StudentID    int              `json:"student_id"`
	Status       SubmissionStatus `json:"status"`
	TotalScore   *float64         `json:"total_score,omitempty"`
	MaxScore     float64          `json:"max_score"`
	IsLate       bool             `json:"is_late"`
	Terminated   bool             `json:"terminated"`
	FinishedAt   time.Time        `json:"finished_at"`
}
