package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setHighestCall struct {
	examID    uuid.UUID
	studentID int
	highestID *uuid.UUID
}

// recordingPairStore serves a fixed attempt list and records every call.
type recordingPairStore struct {
	subs    []model.Submission
	lockErr error
	calls   []string
	sets    []setHighestCall
}

func (r *recordingPairStore) LockPair(_ context.Context, _ uuid.UUID, _ int) error {
	r.calls = append(r.calls, "lock")
	return r.lockErr
}

func (r *recordingPairStore) ListByExamAndStudent(_ context.Context, _ uuid.UUID, _ int) ([]model.Submission, error) {
	r.calls = append(r.calls, "list")
	return append([]model.Submission(nil), r.subs...), nil
}

func (r *recordingPairStore) SetHighest(_ context.Context, examID uuid.UUID, studentID int, highestID *uuid.UUID) error {
	r.calls = append(r.calls, "set")
	r.sets = append(r.sets, setHighestCall{examID: examID, studentID: studentID, highestID: highestID})
	return nil
}

func attempt(examID uuid.UUID, n int, status model.SubmissionStatus, score float64, highest bool) model.Submission {
	s := model.Submission{
		ID:             uuid.New(),
		ExamID:         examID,
		StudentID:      42,
		AttemptNumber:  n,
		Status:         status,
		MaxScore:       10,
		IsHighestScore: highest,
	}
	if status == model.SubmissionStatusGraded {
		s.TotalScore = &score
	}
	return s
}

func TestRecomputeHighestMovesFlag(t *testing.T) {
	examID := uuid.New()
	first := attempt(examID, 1, model.SubmissionStatusGraded, 6, true)
	second := attempt(examID, 2, model.SubmissionStatusGraded, 9, false)
	store := &recordingPairStore{subs: []model.Submission{first, second}}

	subs, target, err := lockAttempts(context.Background(), store, &second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, target.ID)

	n, err := recomputeHighest(context.Background(), store, subs)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"lock", "list", "set"}, store.calls)
	require.Len(t, store.sets, 1)
	assert.Equal(t, examID, store.sets[0].examID)
	assert.Equal(t, 42, store.sets[0].studentID)
	require.NotNil(t, store.sets[0].highestID)
	assert.Equal(t, second.ID, *store.sets[0].highestID)
}

func TestRecomputeHighestNoChange(t *testing.T) {
	examID := uuid.New()
	store := &recordingPairStore{subs: []model.Submission{
		attempt(examID, 1, model.SubmissionStatusGraded, 9, true),
		attempt(examID, 2, model.SubmissionStatusGraded, 9, false),
		attempt(examID, 3, model.SubmissionStatusInProgress, 0, false),
	}}

	n, err := recomputeHighest(context.Background(), store, store.subs)
	require.NoError(t, err)
	assert.Zero(t, n, "a tie keeps the earlier attempt")
	assert.Empty(t, store.sets)

	n, err = recomputeHighest(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.calls)
}

func TestRecomputeHighestClearsFlag(t *testing.T) {
	examID := uuid.New()
	// The flagged attempt went back to manual review and no other attempt is graded.
	store := &recordingPairStore{subs: []model.Submission{
		attempt(examID, 1, model.SubmissionStatusPending, 0, true),
	}}

	n, err := recomputeHighest(context.Background(), store, store.subs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.sets, 1)
	assert.Nil(t, store.sets[0].highestID)
}

func TestLockAttempts(t *testing.T) {
	examID := uuid.New()
	known := attempt(examID, 1, model.SubmissionStatusInProgress, 0, false)

	t.Run("lock failure stops before reading", func(t *testing.T) {
		store := &recordingPairStore{subs: []model.Submission{known}, lockErr: errors.New("deadlock detected")}
		_, _, err := lockAttempts(context.Background(), store, &known)
		assert.ErrorContains(t, err, "lock attempts")
		assert.Equal(t, []string{"lock"}, store.calls)
	})

	t.Run("attempt gone", func(t *testing.T) {
		store := &recordingPairStore{subs: []model.Submission{known}}
		stranger := attempt(examID, 2, model.SubmissionStatusInProgress, 0, false)
		_, _, err := lockAttempts(context.Background(), store, &stranger)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
