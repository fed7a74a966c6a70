package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const questionColumns = `id, author_id, title, question_text, question_type, options,
	correct_answer, correct_answers, points, difficulty, subject_id, explanation, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	db database.DBTX
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db database.DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *QuestionRepository) WithTx(tx pgx.Tx) *QuestionRepository {
	return &QuestionRepository{db: tx}
}

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.AuthorID, &q.Title, &q.QuestionText, &q.QuestionType, &q.Options,
		&q.CorrectAnswer, &q.CorrectAnswers, &q.Points, &q.Difficulty, &q.SubjectID, &q.Explanation,
		&q.CreatedAt, &q.UpdatedAt)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO questions (author_id, title, question_text, question_type, options,
		                        correct_answer, correct_answers, points, difficulty, subject_id, explanation)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		q.AuthorID, q.Title, q.QuestionText, q.QuestionType, q.Options,
		q.CorrectAnswer, q.CorrectAnswers, q.Points, q.Difficulty, q.SubjectID, q.Explanation,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a question by id.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id), q)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// GetByIDs retrieves the questions with the given ids, keyed by id.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	rows, err := r.db.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]model.Question, len(ids))
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		out[q.ID] = q
	}
	return out, rows.Err()
}

// ListByAuthor returns a page of an author's questions and the total count.
func (r *QuestionRepository) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Question, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE author_id = $1`, authorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE author_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// UpdateMeta updates the descriptive fields of a question. The answer key is
// never changed here.
func (r *QuestionRepository) UpdateMeta(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionMetaRequest) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE questions SET
		     title       = COALESCE($2, title),
		     difficulty  = COALESCE($3, difficulty),
		     explanation = COALESCE($4, explanation),
		     points      = COALESCE($5, points),
		     updated_at  = NOW()
		 WHERE id = $1`,
		id, req.Title, req.Difficulty, req.Explanation, req.Points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
