package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/model"
)

const submissionColumns = `id, exam_id, student_id, attempt_number, started_at, submitted_at,
	time_taken_seconds, status, is_late, is_highest_score, total_score, max_score, progress_data,
	last_saved_at, time_remaining_seconds, proctoring_data, layout`

// SubmissionRepository handles attempt data access.
type SubmissionRepository struct {
	db database.DBTX
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db database.DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *SubmissionRepository) WithTx(tx pgx.Tx) *SubmissionRepository {
	return &SubmissionRepository{db: tx}
}

func scanSubmission(row pgx.Row, s *model.Submission) error {
	return row.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.AttemptNumber, &s.StartedAt, &s.SubmittedAt,
		&s.TimeTakenSeconds, &s.Status, &s.IsLate, &s.IsHighestScore, &s.TotalScore, &s.MaxScore,
		&s.ProgressData, &s.LastSavedAt, &s.TimeRemainingSeconds, &s.ProctoringData, &s.Layout)
}

func collectSubmissions(rows pgx.Rows) ([]model.Submission, error) {
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// LockPair takes a transaction-scoped advisory lock on one (exam, student)
// pair. Every attempt write for the pair runs under this lock, which keeps
// attempt numbering and the highest-score flag consistent.
func (r *SubmissionRepository) LockPair(ctx context.Context, examID uuid.UUID, studentID int) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		fmt.Sprintf("submission:%s:%d", examID, studentID))
	return err
}

// ListByExamAndStudent returns every attempt of a student at an exam, oldest first.
func (r *SubmissionRepository) ListByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Submission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY attempt_number`, examID, studentID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// GetByID retrieves an attempt.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := scanSubmission(r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id), s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// Create inserts a new attempt.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO submissions (id, exam_id, student_id, attempt_number, started_at, status, max_score,
		                          progress_data, time_remaining_seconds, proctoring_data, layout)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.ExamID, s.StudentID, s.AttemptNumber, s.StartedAt, s.Status, s.MaxScore,
		s.ProgressData, s.TimeRemainingSeconds, s.ProctoringData, s.Layout)
	return err
}

// Save writes every mutable column of an attempt.
func (r *SubmissionRepository) Save(ctx context.Context, s *model.Submission) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET
		     submitted_at = $2, time_taken_seconds = $3, status = $4, is_late = $5,
		     total_score = $6, max_score = $7, progress_data = $8, last_saved_at = $9,
		     time_remaining_seconds = $10, proctoring_data = $11
		 WHERE id = $1`,
		s.ID, s.SubmittedAt, s.TimeTakenSeconds, s.Status, s.IsLate,
		s.TotalScore, s.MaxScore, s.ProgressData, s.LastSavedAt,
		s.TimeRemainingSeconds, s.ProctoringData)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetHighest moves the highest-score flag of a pair to highestID (nil clears
// it). Flags are cleared before the new one is set so the partial unique
// index never sees two flagged rows.
func (r *SubmissionRepository) SetHighest(ctx context.Context, examID uuid.UUID, studentID int, highestID *uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE submissions SET is_highest_score = FALSE
		 WHERE exam_id = $1 AND student_id = $2 AND is_highest_score
		   AND ($3::uuid IS NULL OR id <> $3)`, examID, studentID, highestID); err != nil {
		return err
	}
	if highestID == nil {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE submissions SET is_highest_score = TRUE WHERE id = $1 AND NOT is_highest_score`, *highestID)
	return err
}

// ProgressWrite is one queued autosave snapshot.
type ProgressWrite struct {
	SubmissionID         uuid.UUID
	ProgressJSON         string
	SavedAt              time.Time
	TimeRemainingSeconds *int
}

// BulkSaveProgress applies autosave snapshots with UNNEST. Only in-progress
// attempts are touched and an older snapshot never overwrites a newer one.
func (r *SubmissionRepository) BulkSaveProgress(ctx context.Context, writes []ProgressWrite) error {
	ids := make([]uuid.UUID, len(writes))
	progress := make([]string, len(writes))
	savedAts := make([]time.Time, len(writes))
	remaining := make([]*int, len(writes))
	for i, w := range writes {
		ids[i] = w.SubmissionID
		progress[i] = w.ProgressJSON
		savedAts[i] = w.SavedAt
		remaining[i] = w.TimeRemainingSeconds
	}

	_, err := r.db.Exec(ctx, `
		UPDATE submissions AS s
		SET progress_data = t.progress::jsonb,
		    last_saved_at = t.saved_at,
		    time_remaining_seconds = t.remaining
		FROM (
			SELECT DISTINCT ON (u.id) u.id, u.progress, u.saved_at, u.remaining
			FROM UNNEST($1::uuid[], $2::text[], $3::timestamptz[], $4::int[])
			     AS u (id, progress, saved_at, remaining)
			ORDER BY u.id, u.saved_at DESC
		) AS t
		WHERE s.id = t.id
		  AND s.status = 'in_progress'
		  AND (s.last_saved_at IS NULL OR s.last_saved_at <= t.saved_at)`,
		ids, progress, savedAts, remaining)
	return err
}

// SaveProgress applies a single autosave snapshot.
func (r *SubmissionRepository) SaveProgress(ctx context.Context, w ProgressWrite) error {
	_, err := r.db.Exec(ctx,
		`UPDATE submissions
		 SET progress_data = $2::jsonb, last_saved_at = $3, time_remaining_seconds = $4
		 WHERE id = $1 AND status = 'in_progress'
		   AND (last_saved_at IS NULL OR last_saved_at <= $3)`,
		w.SubmissionID, w.ProgressJSON, w.SavedAt, w.TimeRemainingSeconds)
	return err
}

// ListByExam returns a page of an exam's attempts, optionally filtered by status.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID, status *model.SubmissionStatus, page, perPage int) ([]model.Submission, int64, error) {
	where := ` FROM submissions WHERE exam_id = $1`
	args := []any{examID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*)"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.db.Query(ctx,
		`SELECT `+submissionColumns+where+
			fmt.Sprintf(" ORDER BY student_id, attempt_number LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	subs, err := collectSubmissions(rows)
	return subs, total, err
}

// ListPendingByAuthor returns attempts awaiting manual review on exams
// authored by authorID, oldest submission first.
func (r *SubmissionRepository) ListPendingByAuthor(ctx context.Context, authorID, limit int) ([]model.Submission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.exam_id, s.student_id, s.attempt_number, s.started_at, s.submitted_at,
		        s.time_taken_seconds, s.status, s.is_late, s.is_highest_score, s.total_score, s.max_score,
		        s.progress_data, s.last_saved_at, s.time_remaining_seconds, s.proctoring_data, s.layout
		 FROM submissions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE e.author_id = $1 AND s.status = 'pending'
		 ORDER BY s.submitted_at
		 LIMIT $2`, authorID, limit)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// CountByStatus returns the number of attempts per status for an exam.
func (r *SubmissionRepository) CountByStatus(ctx context.Context, examID uuid.UUID) (map[model.SubmissionStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM submissions WHERE exam_id = $1 GROUP BY status`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.SubmissionStatus]int)
	for rows.Next() {
		var (
			status model.SubmissionStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListStudentIDs returns every student with at least one attempt at an exam.
func (r *SubmissionRepository) ListStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT student_id FROM submissions WHERE exam_id = $1 ORDER BY student_id`, examID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}
