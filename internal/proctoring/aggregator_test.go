package proctoring

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func inProgress() *model.Submission {
	return &model.Submission{Status: model.SubmissionStatusInProgress}
}

func TestRecord_TerminatesOnceAtThreshold(t *testing.T) {
	agg := NewAggregator(func() time.Time { return fixedNow })
	policy := Policy{Enabled: true, WarningThreshold: 2, AutoTerminate: true}
	sub := inProgress()

	out, err := agg.Record(policy, sub, model.Violation{Type: "tab_switch"})
	require.NoError(t, err)
	assert.False(t, out.Terminate)
	assert.Equal(t, 1, out.WarningsLeft)

	out, err = agg.Record(policy, sub, model.Violation{Type: "fullscreen_exit"})
	require.NoError(t, err)
	assert.True(t, out.Terminate)
	assert.True(t, sub.ProctoringData.IsTerminatedForViolations)
	require.NotNil(t, sub.ProctoringData.TerminatedAt)
	assert.Equal(t, fixedNow, *sub.ProctoringData.TerminatedAt)

	// The caller force-submits; later events are still logged.
	sub.Status = model.SubmissionStatusGraded
	out, err = agg.Record(policy, sub, model.Violation{Type: "tab_switch"})
	require.NoError(t, err)
	assert.False(t, out.Terminate)
	assert.Equal(t, 3, sub.ProctoringData.TotalViolations)
	assert.Equal(t, map[string]int{"tab_switch": 2, "fullscreen_exit": 1}, sub.ProctoringData.CountsByType)
	assert.Len(t, sub.ProctoringData.Violations, 3)
}

func TestRecord_NoAutoTerminate(t *testing.T) {
	agg := NewAggregator(nil)
	policy := Policy{Enabled: true, WarningThreshold: 1, AutoTerminate: false}
	sub := inProgress()

	for i := 0; i < 4; i++ {
		out, err := agg.Record(policy, sub, model.Violation{Type: "copy"})
		require.NoError(t, err)
		assert.False(t, out.Terminate)
	}
	assert.False(t, sub.ProctoringData.IsTerminatedForViolations)
	assert.Equal(t, 4, sub.ProctoringData.TotalViolations)
}

func TestRecord_DisabledStillLogs(t *testing.T) {
	agg := NewAggregator(nil)
	sub := inProgress()

	out, err := agg.Record(Policy{WarningThreshold: 1, AutoTerminate: true}, sub, model.Violation{Type: "copy"})
	require.NoError(t, err)
	assert.False(t, out.Terminate)
	assert.Equal(t, 1, sub.ProctoringData.TotalViolations)
	assert.False(t, sub.ProctoringData.Violations[0].Timestamp.IsZero())
}

func TestRecord_RejectsNormallySubmittedAttempt(t *testing.T) {
	agg := NewAggregator(nil)
	sub := &model.Submission{Status: model.SubmissionStatusPending}

	_, err := agg.Record(Policy{Enabled: true}, sub, model.Violation{Type: "copy"})
	assert.ErrorIs(t, err, ErrAttemptClosed)
	assert.Zero(t, sub.ProctoringData.TotalViolations)
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		total int
		want  Severity
	}{
		{0, SeverityNone},
		{1, SeverityLow},
		{2, SeverityLow},
		{3, SeverityMedium},
		{5, SeverityMedium},
		{6, SeverityHigh},
		{40, SeverityHigh},
	}

	for _, tc := range tests {
		if got := SeverityFor(tc.total); got != tc.want {
			t.Errorf("SeverityFor(%d) = %s, want %s", tc.total, got, tc.want)
		}
	}
}
