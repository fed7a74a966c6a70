package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/model"
)

// AnswerRepository handles graded answer data access.
type AnswerRepository struct {
	db database.DBTX
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(db database.DBTX) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *AnswerRepository) WithTx(tx pgx.Tx) *AnswerRepository {
	return &AnswerRepository{db: tx}
}

// InsertAll bulk inserts the answers of a freshly submitted attempt.
func (r *AnswerRepository) InsertAll(ctx context.Context, answers []model.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"answers"},
		[]string{"id", "submission_id", "question_id", "question_type", "answer_text", "selected_option",
			"selected_options", "score", "max_score", "requires_manual_review", "decode_error", "graded_at"},
		pgx.CopyFromSlice(len(answers), func(i int) ([]any, error) {
			a := answers[i]
			return []any{a.ID, a.SubmissionID, a.QuestionID, string(a.QuestionType), a.AnswerText, a.SelectedOption,
				a.SelectedOptions, a.Score, a.MaxScore, a.RequiresManualReview, a.DecodeError, a.GradedAt}, nil
		}),
	)
	return err
}

// ListBySubmission returns the answers of an attempt.
func (r *AnswerRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, submission_id, question_id, question_type, answer_text, selected_option, selected_options,
		        score, max_score, requires_manual_review, decode_error, feedback, graded_at, graded_by
		 FROM answers WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.QuestionType, &a.AnswerText,
			&a.SelectedOption, &a.SelectedOptions, &a.Score, &a.MaxScore, &a.RequiresManualReview,
			&a.DecodeError, &a.Feedback, &a.GradedAt, &a.GradedBy); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveGrade stores a manual score on one answer.
func (r *AnswerRepository) SaveGrade(ctx context.Context, a *model.Answer) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE answers SET score = $2, feedback = $3, graded_at = $4, graded_by = $5 WHERE id = $1`,
		a.ID, a.Score, a.Feedback, a.GradedAt, a.GradedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ViolationRepository writes the proctoring audit feed.
type ViolationRepository struct {
	db database.DBTX
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(db database.DBTX) *ViolationRepository {
	return &ViolationRepository{db: db}
}

var violationColumns = []string{"submission_id", "exam_id", "student_id", "violation_type", "description", "occurred_at"}

// BulkInsert copies a batch of violation events.
func (r *ViolationRepository) BulkInsert(ctx context.Context, events []model.ViolationEvent) error {
	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"proctoring_events"},
		violationColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.SubmissionID, e.ExamID, e.StudentID, e.Type, e.Description, e.Timestamp}, nil
		}),
	)
	return err
}

// Insert writes a single violation event.
func (r *ViolationRepository) Insert(ctx context.Context, e model.ViolationEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO proctoring_events (submission_id, exam_id, student_id, violation_type, description, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.SubmissionID, e.ExamID, e.StudentID, e.Type, e.Description, e.Timestamp)
	return err
}

// CountByStudent returns the number of logged violations per student for an exam.
func (r *ViolationRepository) CountByStudent(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT student_id, COUNT(*) FROM proctoring_events WHERE exam_id = $1 GROUP BY student_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var studentID, n int
		if err := rows.Scan(&studentID, &n); err != nil {
			return nil, err
		}
		counts[studentID] = n
	}
	return counts, rows.Err()
}

// CountSince returns how many violations an exam logged since t.
func (r *ViolationRepository) CountSince(ctx context.Context, examID uuid.UUID, t time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM proctoring_events WHERE exam_id = $1 AND occurred_at >= $2`, examID, t).Scan(&n)
	return n, err
}
