package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/grading"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type clock struct{ at time.Time }

func (c *clock) now() time.Time { return c.at }

func (c *clock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newManager(c *clock) *Manager {
	return NewManager(grading.NewEngine(), WithClock(c.now), WithLateGrace(30*time.Second))
}

func question(def codec.Definition, points int) model.Question {
	s := codec.EncodeDefinition(def)
	return model.Question{
		ID:             uuid.New(),
		QuestionType:   def.Type(),
		QuestionText:   string(def.Type()) + " question",
		Options:        s.Options,
		CorrectAnswer:  s.CorrectAnswer,
		CorrectAnswers: s.CorrectAnswers,
		Points:         points,
	}
}

func examWith(qs ...model.Question) *model.Exam {
	e := &model.Exam{
		ID:              uuid.New(),
		Kind:            model.ExamKindExam,
		Title:           "Midterm",
		AttemptsAllowed: 1,
		Status:          model.ExamStatusPublished,
	}
	for i, q := range qs {
		e.Questions = append(e.Questions, model.ExamQuestion{
			ExamID:     e.ID,
			QuestionID: q.ID,
			OrderNum:   i,
			Question:   q,
		})
	}
	return e
}

func mcq(correct string) model.Question {
	return question(codec.ChoiceDefinition{Options: []string{"a", "b", "c", "d"}, Correct: []string{correct}}, 10)
}

func essay() model.Question {
	return question(codec.FreeTextDefinition{Kind: model.QuestionTypeEssay}, 10)
}

func pick(l string) model.AnswerInput { return model.AnswerInput{SelectedOption: &l} }

func TestStart_AttemptLimit(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	exam := examWith(mcq("A"))
	exam.AttemptsAllowed = 2

	var prior []model.Submission
	for i := 1; i <= 2; i++ {
		sub, created, err := m.Start(exam, prior, 7)
		require.NoError(t, err)
		require.True(t, created)
		assert.Equal(t, i, sub.AttemptNumber)
		_, err = m.Submit(sub, exam, nil, false)
		require.NoError(t, err)
		prior = append(prior, *sub)
	}

	_, _, err := m.Start(exam, prior, 7)
	assert.ErrorIs(t, err, ErrAttemptLimitExceeded)
}

func TestStart_Unlimited(t *testing.T) {
	m := newManager(&clock{at: t0})
	exam := examWith(mcq("A"))
	exam.AttemptsAllowed = model.UnlimitedAttempts

	var prior []model.Submission
	for i := 1; i <= 5; i++ {
		sub, _, err := m.Start(exam, prior, 7)
		require.NoError(t, err)
		_, err = m.Submit(sub, exam, nil, false)
		require.NoError(t, err)
		prior = append(prior, *sub)
	}
	assert.Equal(t, 5, prior[4].AttemptNumber)
}

func TestStart_ResumesInProgress(t *testing.T) {
	m := newManager(&clock{at: t0})
	exam := examWith(mcq("A"))

	first, created, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := m.Start(exam, []model.Submission{*first}, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.AttemptNumber)
}

func TestStart_AvailabilityWindow(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	exam := examWith(mcq("A"))
	from, until := t0.Add(time.Hour), t0.Add(3*time.Hour)
	exam.AvailableFrom, exam.AvailableUntil = &from, &until

	_, _, err := m.Start(exam, nil, 7)
	assert.ErrorIs(t, err, ErrExamNotAvailable)

	c.advance(4 * time.Hour)
	_, _, err = m.Start(exam, nil, 7)
	assert.ErrorIs(t, err, ErrExamNotAvailable)

	c.at = t0.Add(2 * time.Hour)
	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	require.NotNil(t, sub.TimeRemainingSeconds)
	assert.Equal(t, 3600, *sub.TimeRemainingSeconds)

	exam.Status = model.ExamStatusDraft
	_, _, err = m.Start(exam, nil, 8)
	assert.ErrorIs(t, err, ErrExamNotAvailable)
}

func TestSaveProgress(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	q := mcq("B")
	exam := examWith(q)

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)

	remaining := 1200
	p := model.ProgressData{
		Answers:              map[uuid.UUID]model.AnswerInput{q.ID: pick("B")},
		CurrentQuestionIndex: 0,
		TimeRemainingSeconds: &remaining,
	}
	c.advance(time.Minute)
	require.NoError(t, m.SaveProgress(sub, exam, p))
	require.NoError(t, m.SaveProgress(sub, exam, p))

	assert.Equal(t, 1, sub.AttemptNumber)
	assert.Equal(t, p, *sub.ProgressData)
	assert.Equal(t, 1200, *sub.TimeRemainingSeconds)
	assert.Equal(t, t0.Add(time.Minute), *sub.LastSavedAt)

	stray := model.ProgressData{Answers: map[uuid.UUID]model.AnswerInput{uuid.New(): pick("A")}}
	assert.ErrorIs(t, m.SaveProgress(sub, exam, stray), ErrQuestionNotInExam)

	_, err = m.Submit(sub, exam, sub.ProgressData.Answers, false)
	require.NoError(t, err)
	assert.Nil(t, sub.ProgressData)
	assert.ErrorIs(t, m.SaveProgress(sub, exam, p), ErrInvalidAttemptState)
}

func TestSubmit_DoubleSubmitRejected(t *testing.T) {
	m := newManager(&clock{at: t0})
	q := mcq("C")
	exam := examWith(q)

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	answers, err := m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{q.ID: pick("C")}, false)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, model.SubmissionStatusGraded, sub.Status)
	require.NotNil(t, sub.TotalScore)
	assert.Equal(t, 10.0, *sub.TotalScore)

	_, err = m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{q.ID: pick("A")}, false)
	assert.ErrorIs(t, err, ErrInvalidAttemptState)
	assert.Equal(t, 10.0, *sub.TotalScore)
}

func TestSubmit_QuestionNotInExam(t *testing.T) {
	m := newManager(&clock{at: t0})
	exam := examWith(mcq("A"))

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	_, err = m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{uuid.New(): pick("A")}, false)
	assert.ErrorIs(t, err, ErrQuestionNotInExam)
	assert.True(t, sub.InProgress())
}

func TestSubmit_MissingAndMalformedAnswers(t *testing.T) {
	m := newManager(&clock{at: t0})
	q1 := mcq("A")
	q2 := question(codec.RankingDefinition{Items: []string{"x", "y", "z"}}, 6)
	exam := examWith(q1, q2)

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	answers, err := m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{
		q2.ID: {AnswerText: "x > y > z"},
	}, false)
	require.NoError(t, err)
	require.Len(t, answers, 2)

	assert.Equal(t, q1.ID, answers[0].QuestionID)
	assert.Equal(t, 0.0, *answers[0].Score)
	assert.Empty(t, answers[0].DecodeError)

	assert.Equal(t, 0.0, *answers[1].Score)
	assert.NotEmpty(t, answers[1].DecodeError)
	assert.Equal(t, 16.0, sub.MaxScore)
	assert.Equal(t, model.SubmissionStatusGraded, sub.Status)
}

func TestManualReviewGating(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	q1, q2 := mcq("A"), essay()
	exam := examWith(q1, q2)

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	answers, err := m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{
		q1.ID: pick("A"),
		q2.ID: {AnswerText: "The industrial revolution began in Britain."},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, model.SubmissionStatusPending, sub.Status)
	assert.True(t, answers[1].RequiresManualReview)
	assert.Nil(t, answers[1].Score)
	assert.Equal(t, 10.0, *sub.TotalScore)

	_, err = m.GradeAnswer(sub, answers, uuid.New(), 5, nil, 99)
	assert.ErrorIs(t, err, ErrQuestionNotInExam)
	_, err = m.GradeAnswer(sub, answers, q2.ID, 11, nil, 99)
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
	assert.Equal(t, model.SubmissionStatusPending, sub.Status)

	feedback := "Good structure."
	graded, err := m.GradeAnswer(sub, answers, q2.ID, 7.5, &feedback, 99)
	require.NoError(t, err)
	assert.Equal(t, 7.5, *graded.Score)
	assert.Equal(t, 99, *graded.GradedBy)
	assert.Equal(t, model.SubmissionStatusGraded, sub.Status)
	assert.Equal(t, 17.5, *sub.TotalScore)
}

func TestGradeAnswer_InProgressRejected(t *testing.T) {
	m := newManager(&clock{at: t0})
	q := essay()
	exam := examWith(q)

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	_, err = m.GradeAnswer(sub, []model.Answer{{QuestionID: q.ID, MaxScore: 10}}, q.ID, 5, nil, 99)
	assert.ErrorIs(t, err, ErrInvalidAttemptState)
}

func TestSubmit_LateFlag(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	exam := examWith(mcq("A"))
	exam.DurationMinutes = 30

	onTime, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	c.advance(30*time.Minute + 20*time.Second)
	_, err = m.Submit(onTime, exam, nil, false)
	require.NoError(t, err)
	assert.False(t, onTime.IsLate)

	exam.AttemptsAllowed = 3
	late, _, err := m.Start(exam, []model.Submission{*onTime}, 7)
	require.NoError(t, err)
	c.advance(31 * time.Minute)
	_, err = m.Submit(late, exam, nil, false)
	require.NoError(t, err)
	assert.True(t, late.IsLate)

	hw := examWith(mcq("A"))
	hw.Kind = model.ExamKindHomework
	due := c.at.Add(time.Hour)
	hw.DueDate = &due
	sub, _, err := m.Start(hw, nil, 7)
	require.NoError(t, err)
	c.advance(time.Hour + time.Second)
	_, err = m.Submit(sub, hw, nil, false)
	require.NoError(t, err)
	assert.True(t, sub.IsLate)
	assert.Equal(t, 3601, sub.TimeTakenSeconds)
}

func TestRecomputeHighest(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	subs := []*model.Submission{
		{AttemptNumber: 1, Status: model.SubmissionStatusGraded, TotalScore: score(70), MaxScore: 100, IsHighestScore: true},
		{AttemptNumber: 2, Status: model.SubmissionStatusGraded, TotalScore: score(95), MaxScore: 100},
		{AttemptNumber: 3, Status: model.SubmissionStatusGraded, TotalScore: score(80), MaxScore: 100},
		{AttemptNumber: 4, Status: model.SubmissionStatusPending, TotalScore: score(99), MaxScore: 100},
	}

	changed := RecomputeHighest(subs)
	assert.Len(t, changed, 2)

	flagged := 0
	for _, s := range subs {
		if s.IsHighestScore {
			flagged++
			assert.Equal(t, 2, s.AttemptNumber)
		}
	}
	assert.Equal(t, 1, flagged)

	assert.Empty(t, RecomputeHighest(subs))
}

func TestRecomputeHighest_TieGoesToEarliest(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	subs := []*model.Submission{
		{AttemptNumber: 2, Status: model.SubmissionStatusGraded, TotalScore: score(8), MaxScore: 10},
		{AttemptNumber: 1, Status: model.SubmissionStatusGraded, TotalScore: score(4), MaxScore: 5},
	}
	RecomputeHighest(subs)
	assert.False(t, subs[0].IsHighestScore)
	assert.True(t, subs[1].IsHighestScore)
}

func TestRecordViolation_ForceSubmitsOnce(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	q := mcq("D")
	exam := examWith(q)
	exam.EnableProctoring = true
	exam.ProctoringWarningThreshold = 2
	exam.ProctoringAutoTerminate = true
	exam.DurationMinutes = 10

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	require.NoError(t, m.SaveProgress(sub, exam, model.ProgressData{
		Answers: map[uuid.UUID]model.AnswerInput{q.ID: pick("D")},
	}))

	out, answers, err := m.RecordViolation(exam, sub, model.Violation{Type: "tab_switch"})
	require.NoError(t, err)
	assert.False(t, out.Terminate)
	assert.Nil(t, answers)
	assert.True(t, sub.InProgress())

	c.advance(time.Hour)
	out, answers, err = m.RecordViolation(exam, sub, model.Violation{Type: "tab_switch"})
	require.NoError(t, err)
	assert.True(t, out.Terminate)
	require.Len(t, answers, 1)
	assert.Equal(t, 10.0, *answers[0].Score)
	assert.True(t, sub.ProctoringData.IsTerminatedForViolations)
	assert.Equal(t, model.SubmissionStatusGraded, sub.Status)
	assert.False(t, sub.IsLate)
	submittedAt := *sub.SubmittedAt

	c.advance(time.Minute)
	out, answers, err = m.RecordViolation(exam, sub, model.Violation{Type: "tab_switch"})
	require.NoError(t, err)
	assert.False(t, out.Terminate)
	assert.Nil(t, answers)
	assert.Equal(t, submittedAt, *sub.SubmittedAt)
	assert.Equal(t, 3, sub.ProctoringData.TotalViolations)
}

func TestRecordViolation_ClosedAttempt(t *testing.T) {
	m := newManager(&clock{at: t0})
	exam := examWith(mcq("A"))

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	_, err = m.Submit(sub, exam, nil, false)
	require.NoError(t, err)

	_, _, err = m.RecordViolation(exam, sub, model.Violation{Type: "copy"})
	assert.ErrorIs(t, err, ErrInvalidAttemptState)
}

func TestRandomizedLayout(t *testing.T) {
	c := &clock{at: t0}
	m := newManager(c)
	q := question(codec.ChoiceDefinition{Options: []string{"w", "x", "y", "z"}, Correct: []string{"C"}}, 4)
	exam := examWith(q, mcq("A"), mcq("B"))
	exam.RandomizeQuestions = true
	exam.RandomizeOptions = true

	sub, _, err := m.Start(exam, nil, 7)
	require.NoError(t, err)
	require.NotNil(t, sub.Layout)
	assert.ElementsMatch(t, []uuid.UUID{exam.Questions[0].QuestionID, exam.Questions[1].QuestionID, exam.Questions[2].QuestionID}, sub.Layout.QuestionOrder)
	assert.Equal(t, sub.Layout, buildLayout(exam, sub.ID))

	perm := sub.Layout.OptionOrder[q.ID]
	require.Len(t, perm, 4)

	// The student picks whichever displayed letter shows canonical option C ("y").
	displayed := -1
	for i, p := range perm {
		if p == 2 {
			displayed = i
		}
	}
	require.GreaterOrEqual(t, displayed, 0)

	paper := Paper(exam, sub)
	require.Len(t, paper.Questions, 3)
	assert.Equal(t, sub.Layout.QuestionOrder[0], paper.Questions[0].ID)

	answers, err := m.Submit(sub, exam, map[uuid.UUID]model.AnswerInput{q.ID: pick(codec.Letter(displayed))}, false)
	require.NoError(t, err)
	for _, a := range answers {
		if a.QuestionID == q.ID {
			assert.Equal(t, 4.0, *a.Score)
			assert.Equal(t, "C", *a.SelectedOption)
		}
	}
}
