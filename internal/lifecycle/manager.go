// Package lifecycle implements the attempt state machine:
// in_progress -> submitted -> graded | pending -> graded.
//
// Manager methods mutate the records they are given and never touch
// storage. Callers must serialize calls per (student, exam) pair.
package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/grading"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/proctoring"
)

// Manager applies lifecycle transitions to attempts.
type Manager struct {
	engine    *grading.Engine
	proctor   *proctoring.Aggregator
	now       func() time.Time
	lateGrace time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLateGrace sets how long after an exam deadline a submission is still on time.
func WithLateGrace(d time.Duration) Option {
	return func(m *Manager) { m.lateGrace = d }
}

// NewManager creates a Manager grading with engine.
func NewManager(engine *grading.Engine, opts ...Option) *Manager {
	m := &Manager{engine: engine, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	m.proctor = proctoring.NewAggregator(m.now)
	return m
}

// Start resumes the student's in-progress attempt or creates the next one.
// prior holds every existing attempt of the student at this exam. The
// returned bool is true when a new attempt was created.
func (m *Manager) Start(exam *model.Exam, prior []model.Submission, studentID int) (*model.Submission, bool, error) {
	last := 0
	for i := range prior {
		if prior[i].InProgress() {
			resumed := prior[i]
			return &resumed, false, nil
		}
		if prior[i].AttemptNumber > last {
			last = prior[i].AttemptNumber
		}
	}

	now := m.now()
	if err := checkAvailable(exam, now); err != nil {
		return nil, false, fmt.Errorf("start exam %s: %w", exam.ID, err)
	}
	if !exam.Unlimited() && last+1 > exam.AttemptsAllowed {
		return nil, false, fmt.Errorf("start exam %s attempt %d of %d: %w",
			exam.ID, last+1, exam.AttemptsAllowed, ErrAttemptLimitExceeded)
	}

	sub := &model.Submission{
		ID:            uuid.New(),
		ExamID:        exam.ID,
		StudentID:     studentID,
		AttemptNumber: last + 1,
		StartedAt:     now,
		Status:        model.SubmissionStatusInProgress,
		MaxScore:      maxScore(exam),
		ProctoringData: model.ProctoringData{
			Violations:   []model.Violation{},
			CountsByType: map[string]int{},
		},
	}

	remaining := timeRemaining(exam, now)
	sub.TimeRemainingSeconds = remaining
	sub.ProgressData = &model.ProgressData{
		Answers:              map[uuid.UUID]model.AnswerInput{},
		TimeRemainingSeconds: remaining,
	}
	sub.Layout = buildLayout(exam, sub.ID)

	return sub, true, nil
}

// SaveProgress replaces the attempt's autosave snapshot. Saving the same
// snapshot twice leaves the attempt unchanged apart from LastSavedAt.
func (m *Manager) SaveProgress(sub *model.Submission, exam *model.Exam, p model.ProgressData) error {
	if !sub.InProgress() {
		return fmt.Errorf("save progress on attempt %s (%s): %w", sub.ID, sub.Status, ErrInvalidAttemptState)
	}
	for qid := range p.Answers {
		if _, ok := exam.Question(qid); !ok {
			return fmt.Errorf("save progress on attempt %s question %s: %w", sub.ID, qid, ErrQuestionNotInExam)
		}
	}
	if p.Answers == nil {
		p.Answers = map[uuid.UUID]model.AnswerInput{}
	}

	now := m.now()
	sub.ProgressData = &p
	sub.LastSavedAt = &now
	sub.TimeRemainingSeconds = p.TimeRemainingSeconds
	return nil
}

// Submit finalizes an in-progress attempt and grades every exam question.
// Questions without an answer are recorded as empty answers. A forced
// submission (proctoring termination) leaves IsLate untouched.
func (m *Manager) Submit(sub *model.Submission, exam *model.Exam, answers map[uuid.UUID]model.AnswerInput, forced bool) ([]model.Answer, error) {
	if !sub.InProgress() {
		return nil, fmt.Errorf("submit attempt %s (%s): %w", sub.ID, sub.Status, ErrInvalidAttemptState)
	}
	for qid := range answers {
		if _, ok := exam.Question(qid); !ok {
			return nil, fmt.Errorf("submit attempt %s question %s: %w", sub.ID, qid, ErrQuestionNotInExam)
		}
	}

	now := m.now()
	sub.Status = model.SubmissionStatusSubmitted
	sub.SubmittedAt = &now
	sub.TimeTakenSeconds = int(now.Sub(sub.StartedAt).Seconds())
	if !forced {
		sub.IsLate = m.isLate(exam, sub, now)
	}

	questions := orderedQuestions(exam)
	graded := make([]model.Answer, 0, len(questions))
	for _, eq := range questions {
		in := m.canonicalInput(sub, eq, answers[eq.QuestionID])
		res := m.engine.Grade(grading.ItemFor(eq), in)

		ans := model.Answer{
			ID:                   uuid.New(),
			SubmissionID:         sub.ID,
			QuestionID:           eq.QuestionID,
			QuestionType:         eq.Question.QuestionType,
			AnswerText:           in.AnswerText,
			SelectedOption:       in.SelectedOption,
			SelectedOptions:      in.SelectedOptions,
			Score:                res.Score,
			MaxScore:             res.MaxScore,
			RequiresManualReview: res.RequiresManualReview,
		}
		if res.Score != nil {
			ans.GradedAt = &now
		}
		if res.Err != nil {
			ans.DecodeError = res.Err.Error()
		}
		graded = append(graded, ans)
	}

	m.applyTotals(sub, graded)
	sub.ProgressData = nil
	sub.TimeRemainingSeconds = nil
	return graded, nil
}

// GradeAnswer records a human score for one answer of a finalized attempt.
// When no answer is left awaiting review the attempt becomes graded.
func (m *Manager) GradeAnswer(sub *model.Submission, answers []model.Answer, questionID uuid.UUID, score float64, feedback *string, graderID int) (*model.Answer, error) {
	if !sub.Finalized() {
		return nil, fmt.Errorf("grade attempt %s (%s): %w", sub.ID, sub.Status, ErrInvalidAttemptState)
	}

	var target *model.Answer
	for i := range answers {
		if answers[i].QuestionID == questionID {
			target = &answers[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("grade attempt %s question %s: %w", sub.ID, questionID, ErrQuestionNotInExam)
	}
	if score < 0 || score > target.MaxScore {
		return nil, fmt.Errorf("grade attempt %s question %s: %.2f not in [0, %.2f]: %w",
			sub.ID, questionID, score, target.MaxScore, ErrScoreOutOfRange)
	}

	now := m.now()
	rounded := m.engine.Round(score)
	target.Score = &rounded
	target.Feedback = feedback
	target.GradedAt = &now
	target.GradedBy = &graderID

	m.applyTotals(sub, answers)
	return target, nil
}

// applyTotals sums answer scores into the attempt and picks graded or pending.
func (m *Manager) applyTotals(sub *model.Submission, answers []model.Answer) {
	var total, possible float64
	pending := false
	for _, a := range answers {
		possible += a.MaxScore
		if a.Score != nil {
			total += *a.Score
		}
		if a.AwaitingReview() {
			pending = true
		}
	}
	total = m.engine.Round(total)
	sub.TotalScore = &total
	sub.MaxScore = m.engine.Round(possible)
	if pending {
		sub.Status = model.SubmissionStatusPending
	} else {
		sub.Status = model.SubmissionStatusGraded
	}
}

// Deadline returns when the attempt is due, or nil when it has no deadline.
// Homework uses its due date. Exams end at the earlier of the timer running
// out and the availability window closing.
func Deadline(exam *model.Exam, sub *model.Submission) *time.Time {
	if exam.DueDate != nil {
		return exam.DueDate
	}
	var deadline *time.Time
	if exam.DurationMinutes > 0 {
		d := sub.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
		deadline = &d
	}
	if exam.AvailableUntil != nil && (deadline == nil || exam.AvailableUntil.Before(*deadline)) {
		deadline = exam.AvailableUntil
	}
	return deadline
}

func (m *Manager) isLate(exam *model.Exam, sub *model.Submission, at time.Time) bool {
	deadline := Deadline(exam, sub)
	if deadline == nil {
		return false
	}
	if exam.DueDate != nil {
		return at.After(*deadline)
	}
	return at.After(deadline.Add(m.lateGrace))
}

func checkAvailable(exam *model.Exam, now time.Time) error {
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotAvailable
	}
	if exam.AvailableFrom != nil && now.Before(*exam.AvailableFrom) {
		return ErrExamNotAvailable
	}
	// Homework stays open past its due date; late work is flagged instead.
	if exam.AvailableUntil != nil && now.After(*exam.AvailableUntil) {
		return ErrExamNotAvailable
	}
	return nil
}

func timeRemaining(exam *model.Exam, now time.Time) *int {
	var secs int
	switch {
	case exam.DurationMinutes > 0:
		secs = exam.DurationMinutes * 60
	case exam.Kind == model.ExamKindExam && exam.AvailableUntil != nil:
		secs = int(exam.AvailableUntil.Sub(now).Seconds())
	default:
		return nil
	}
	if exam.AvailableUntil != nil {
		if untilClose := int(exam.AvailableUntil.Sub(now).Seconds()); untilClose < secs {
			secs = untilClose
		}
	}
	return &secs
}

func maxScore(exam *model.Exam) float64 {
	var total float64
	for _, eq := range exam.Questions {
		total += eq.EffectivePoints()
	}
	return total
}

func orderedQuestions(exam *model.Exam) []model.ExamQuestion {
	qs := append([]model.ExamQuestion(nil), exam.Questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderNum < qs[j].OrderNum })
	return qs
}
