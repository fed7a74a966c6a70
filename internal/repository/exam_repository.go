package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/model"
)

const examColumns = `id, kind, title, description, author_id, attempts_allowed, duration_minutes,
	available_from, available_until, due_date, randomize_questions, randomize_options,
	enable_proctoring, proctoring_warning_threshold, proctoring_auto_terminate, status, created_at, updated_at`

// ExamRepository handles exam and exam-question data access.
type ExamRepository struct {
	db database.DBTX
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(db database.DBTX) *ExamRepository {
	return &ExamRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *ExamRepository) WithTx(tx pgx.Tx) *ExamRepository {
	return &ExamRepository{db: tx}
}

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Kind, &e.Title, &e.Description, &e.AuthorID, &e.AttemptsAllowed,
		&e.DurationMinutes, &e.AvailableFrom, &e.AvailableUntil, &e.DueDate, &e.RandomizeQuestions,
		&e.RandomizeOptions, &e.EnableProctoring, &e.ProctoringWarningThreshold,
		&e.ProctoringAutoTerminate, &e.Status, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts a new exam in DRAFT status.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO exams (kind, title, description, author_id, attempts_allowed, duration_minutes,
		                    available_from, available_until, due_date, randomize_questions, randomize_options,
		                    enable_proctoring, proctoring_warning_threshold, proctoring_auto_terminate, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		e.Kind, e.Title, e.Description, e.AuthorID, e.AttemptsAllowed, e.DurationMinutes,
		e.AvailableFrom, e.AvailableUntil, e.DueDate, e.RandomizeQuestions, e.RandomizeOptions,
		e.EnableProctoring, e.ProctoringWarningThreshold, e.ProctoringAutoTerminate, model.ExamStatusDraft,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam without its questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.db.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// GetWithQuestions retrieves an exam together with its ordered questions.
func (r *ExamRepository) GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT eq.exam_id, eq.question_id, eq.points, eq.order_num,
		        q.id, q.author_id, q.title, q.question_text, q.question_type, q.options,
		        q.correct_answer, q.correct_answers, q.points, q.difficulty, q.subject_id,
		        q.explanation, q.created_at, q.updated_at
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.order_num, eq.question_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eq model.ExamQuestion
		q := &eq.Question
		if err := rows.Scan(&eq.ExamID, &eq.QuestionID, &eq.Points, &eq.OrderNum,
			&q.ID, &q.AuthorID, &q.Title, &q.QuestionText, &q.QuestionType, &q.Options,
			&q.CorrectAnswer, &q.CorrectAnswers, &q.Points, &q.Difficulty, &q.SubjectID,
			&q.Explanation, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		e.Questions = append(e.Questions, eq)
	}
	return e, rows.Err()
}

// ReplaceQuestions swaps the exam's question list. Run inside a transaction.
func (r *ExamRepository) ReplaceQuestions(ctx context.Context, examID uuid.UUID, items []model.AttachQuestionItem) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, examID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO exam_questions (exam_id, question_id, points, order_num) VALUES ($1, $2, $3, $4)`,
			examID, it.QuestionID, it.Points, it.OrderNum)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

// UpdateStatus sets the exam status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE exams SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublishedIDs returns the ids of all published exams.
func (r *ExamRepository) ListPublishedIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM exams WHERE status = $1`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
