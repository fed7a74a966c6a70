package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWrites(t *testing.T) {
	qid := uuid.New()
	opt := "C"
	remaining := 120
	saved := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	snap := model.ProgressSnapshot{
		SubmissionID: uuid.New(),
		SavedAt:      saved,
		Progress: model.ProgressData{
			Answers:              map[uuid.UUID]model.AnswerInput{qid: {SelectedOption: &opt}},
			CurrentQuestionIndex: 3,
			TimeRemainingSeconds: &remaining,
		},
	}

	writes, err := toWrites([]model.ProgressSnapshot{snap})
	require.NoError(t, err)
	require.Len(t, writes, 1)

	w := writes[0]
	assert.Equal(t, snap.SubmissionID, w.SubmissionID)
	assert.True(t, saved.Equal(w.SavedAt))
	require.NotNil(t, w.TimeRemainingSeconds)
	assert.Equal(t, 120, *w.TimeRemainingSeconds)

	var back model.ProgressData
	require.NoError(t, json.Unmarshal([]byte(w.ProgressJSON), &back))
	assert.Equal(t, 3, back.CurrentQuestionIndex)
	require.Contains(t, back.Answers, qid)
	assert.Equal(t, "C", *back.Answers[qid].SelectedOption)
}

func TestToWritesEmptyBatch(t *testing.T) {
	writes, err := toWrites(nil)
	require.NoError(t, err)
	assert.Empty(t, writes)
}
