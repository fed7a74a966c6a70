package lifecycle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/proctoring"
)

// RecordViolation logs a proctoring violation on the attempt. When it crosses
// the exam's termination threshold the attempt is force-submitted with its
// latest autosaved answers, and the graded answers are returned. This
// happens at most once per attempt.
func (m *Manager) RecordViolation(exam *model.Exam, sub *model.Submission, v model.Violation) (proctoring.Outcome, []model.Answer, error) {
	out, err := m.proctor.Record(proctoring.PolicyFor(exam), sub, v)
	if err != nil {
		if errors.Is(err, proctoring.ErrAttemptClosed) {
			return out, nil, fmt.Errorf("record violation on attempt %s: %w: %w", sub.ID, ErrInvalidAttemptState, err)
		}
		return out, nil, fmt.Errorf("record violation on attempt %s: %w", sub.ID, err)
	}
	if !out.Terminate {
		return out, nil, nil
	}

	var snapshot map[uuid.UUID]model.AnswerInput
	if sub.ProgressData != nil {
		snapshot = sub.ProgressData.Answers
	}
	answers, err := m.Submit(sub, exam, snapshot, true)
	if err != nil {
		return out, nil, fmt.Errorf("terminate attempt %s: %w", sub.ID, err)
	}
	return out, answers, nil
}
