// Package proctoring accumulates client-reported integrity violations on an
// attempt and decides when an attempt must be terminated.
package proctoring

import (
	"errors"
	"time"

	"github.com/stemsi/exstem-assess/internal/model"
)

// ErrAttemptClosed is returned for violations reported on an attempt that was
// submitted normally.
var ErrAttemptClosed = errors.New("attempt is closed to proctoring events")

// Policy is the proctoring configuration of an exam.
type Policy struct {
	Enabled          bool
	WarningThreshold int
	AutoTerminate    bool
}

// PolicyFor extracts the proctoring policy of an exam.
func PolicyFor(e *model.Exam) Policy {
	return Policy{
		Enabled:          e.EnableProctoring,
		WarningThreshold: e.ProctoringWarningThreshold,
		AutoTerminate:    e.ProctoringAutoTerminate,
	}
}

// Outcome reports the effect of one recorded violation.
type Outcome struct {
	Total    int
	Severity Severity
	// Terminate is true exactly once per attempt: on the violation that
	// reached the threshold.
	Terminate    bool
	WarningsLeft int
}

// Aggregator records violations. It holds no per-attempt state; callers
// serialize access to a given submission.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an Aggregator using now as its clock.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Record appends v to the attempt's proctoring data. Violations keep being
// logged after termination but never trigger a second termination.
func (a *Aggregator) Record(p Policy, sub *model.Submission, v model.Violation) (Outcome, error) {
	data := &sub.ProctoringData
	if !sub.InProgress() && !data.IsTerminatedForViolations {
		return Outcome{}, ErrAttemptClosed
	}

	if v.Timestamp.IsZero() {
		v.Timestamp = a.now()
	}
	data.Violations = append(data.Violations, v)
	data.TotalViolations++
	if data.CountsByType == nil {
		data.CountsByType = make(map[string]int)
	}
	data.CountsByType[v.Type]++

	out := Outcome{
		Total:        data.TotalViolations,
		Severity:     SeverityFor(data.TotalViolations),
		WarningsLeft: warningsLeft(p, data.TotalViolations),
	}

	if data.IsTerminatedForViolations || !p.Enabled || !p.AutoTerminate || p.WarningThreshold <= 0 {
		return out, nil
	}
	if data.TotalViolations >= p.WarningThreshold {
		now := a.now()
		data.IsTerminatedForViolations = true
		data.TerminatedAt = &now
		out.Terminate = true
	}
	return out, nil
}

func warningsLeft(p Policy, total int) int {
	if !p.Enabled || p.WarningThreshold <= 0 {
		return 0
	}
	if left := p.WarningThreshold - total; left > 0 {
		return left
	}
	return 0
}
