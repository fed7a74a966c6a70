package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/lifecycle"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
)

// AttemptService runs the student side of the attempt lifecycle against
// PostgreSQL and Redis. Every write to an attempt takes the (exam, student)
// advisory lock inside its transaction.
type AttemptService struct {
	db         database.TxBeginner
	exams      *ExamService
	subRepo    *repository.SubmissionRepository
	answerRepo *repository.AnswerRepository
	manager    *lifecycle.Manager
	rdb        *redis.Client
	cfg        *config.Config
	log        zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	db database.TxBeginner,
	exams *ExamService,
	subRepo *repository.SubmissionRepository,
	answerRepo *repository.AnswerRepository,
	manager *lifecycle.Manager,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		db:         db,
		exams:      exams,
		subRepo:    subRepo,
		answerRepo: answerRepo,
		manager:    manager,
		rdb:        rdb,
		cfg:        cfg,
		log:        log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start resumes the student's in-progress attempt or opens the next one.
// The returned bool is true when a new attempt was created.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, studentID int) (*model.Submission, bool, error) {
	exam, err := s.exams.Load(ctx, examID)
	if err != nil {
		return nil, false, err
	}

	var (
		sub     *model.Submission
		created bool
	)
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		repo := s.subRepo.WithTx(tx)
		if err := repo.LockPair(ctx, examID, studentID); err != nil {
			return fmt.Errorf("lock attempts: %w", err)
		}
		prior, err := repo.ListByExamAndStudent(ctx, examID, studentID)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		sub, created, err = s.manager.Start(exam, prior, studentID)
		if err != nil || !created {
			return err
		}
		return repo.Create(ctx, sub)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info().
			Str("submission_id", sub.ID.String()).
			Str("exam_id", examID.String()).
			Int("student_id", studentID).
			Int("attempt", sub.AttemptNumber).
			Msg("Attempt started")
		status := sub.Status
		publishMonitor(ctx, s.rdb, s.log, model.MonitorEvent{
			Type:         model.MonitorEventAttemptStarted,
			ExamID:       examID,
			SubmissionID: sub.ID,
			StudentID:    studentID,
			Status:       &status,
			At:           sub.StartedAt,
		})
	} else {
		s.overlayProgress(ctx, sub)
	}
	return sub, created, nil
}

// Paper returns the attempt's questions in display order without answer keys.
func (s *AttemptService) Paper(ctx context.Context, submissionID uuid.UUID, studentID int) (*model.ExamPayload, error) {
	sub, err := s.owned(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	paper := lifecycle.Paper(exam, sub)
	return &paper, nil
}

// State returns the attempt with its most recent autosave applied.
func (s *AttemptService) State(ctx context.Context, submissionID uuid.UUID, studentID int) (*model.Submission, error) {
	sub, err := s.owned(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	s.overlayProgress(ctx, sub)
	return sub, nil
}

// SaveProgress validates an autosave snapshot, caches it in Redis and queues
// it for the autosave worker.
func (s *AttemptService) SaveProgress(ctx context.Context, submissionID uuid.UUID, studentID int, req *model.SaveProgressRequest) (*model.ProgressSnapshot, error) {
	sub, err := s.owned(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}

	err = s.manager.SaveProgress(sub, exam, model.ProgressData{
		Answers:              req.Answers,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		TimeRemainingSeconds: req.TimeRemainingSeconds,
	})
	if err != nil {
		return nil, err
	}

	snap := &model.ProgressSnapshot{
		SubmissionID: sub.ID,
		Progress:     *sub.ProgressData,
		SavedAt:      *sub.LastSavedAt,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptProgressKey(sub.ID.String()), raw, s.cfg.ProgressTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("cache progress: %w", err)
	}
	return snap, nil
}

// Submit finalizes the attempt and grades it. Answers missing from req fall
// back to the latest autosave snapshot.
func (s *AttemptService) Submit(ctx context.Context, submissionID uuid.UUID, studentID int, req *model.SubmitAttemptRequest) (*model.Submission, error) {
	current, err := s.owned(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, current.ExamID)
	if err != nil {
		return nil, err
	}

	var sub *model.Submission
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		repo := s.subRepo.WithTx(tx)
		subs, target, err := lockAttempts(ctx, repo, current)
		if err != nil {
			return err
		}
		sub = target
		s.overlayProgress(ctx, sub)

		answers := mergeAnswers(sub.ProgressData, req.Answers)
		graded, err := s.manager.Submit(sub, exam, answers, false)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, sub); err != nil {
			return fmt.Errorf("save attempt: %w", err)
		}
		if err := s.answerRepo.WithTx(tx).InsertAll(ctx, graded); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		_, err = recomputeHighest(ctx, repo, subs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Str("status", string(sub.Status)).
		Bool("late", sub.IsLate).
		Msg("Attempt submitted")
	enqueueResult(ctx, s.rdb, s.log, sub, false)
	return sub, nil
}

// RecordViolation logs a proctoring violation and terminates the attempt
// when the exam's threshold is reached.
func (s *AttemptService) RecordViolation(ctx context.Context, submissionID uuid.UUID, studentID int, req *model.RecordViolationRequest) (*model.ViolationOutcome, error) {
	current, err := s.owned(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, current.ExamID)
	if err != nil {
		return nil, err
	}

	var (
		sub     *model.Submission
		outcome *model.ViolationOutcome
		ended   bool
	)
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		repo := s.subRepo.WithTx(tx)
		subs, target, err := lockAttempts(ctx, repo, current)
		if err != nil {
			return err
		}
		sub = target
		s.overlayProgress(ctx, sub)

		out, graded, err := s.manager.RecordViolation(exam, sub, model.Violation{
			Type:        req.Type,
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		outcome = &model.ViolationOutcome{
			TotalViolations: out.Total,
			Severity:        string(out.Severity),
			Terminated:      sub.ProctoringData.IsTerminatedForViolations,
			WarningsLeft:    out.WarningsLeft,
		}
		ended = out.Terminate

		if err := repo.Save(ctx, sub); err != nil {
			return fmt.Errorf("save attempt: %w", err)
		}
		if graded == nil {
			return nil
		}
		if err := s.answerRepo.WithTx(tx).InsertAll(ctx, graded); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		_, err = recomputeHighest(ctx, repo, subs)
		return err
	})
	if err != nil {
		return nil, err
	}

	violations := sub.ProctoringData.Violations
	v := violations[len(violations)-1]
	s.enqueueViolation(ctx, model.ViolationEvent{
		SubmissionID: sub.ID,
		ExamID:       sub.ExamID,
		StudentID:    studentID,
		Violation:    v,
	})

	total := outcome.TotalViolations
	publishMonitor(ctx, s.rdb, s.log, model.MonitorEvent{
		Type:            model.MonitorEventViolation,
		ExamID:          sub.ExamID,
		SubmissionID:    sub.ID,
		StudentID:       studentID,
		TotalViolations: &total,
		Severity:        outcome.Severity,
		Terminated:      outcome.Terminated,
		At:              v.Timestamp,
	})

	if ended {
		s.log.Warn().
			Str("submission_id", sub.ID.String()).
			Int("violations", total).
			Msg("Attempt terminated for proctoring violations")
		enqueueResult(ctx, s.rdb, s.log, sub, true)
	}
	return outcome, nil
}

// ListMine returns the student's attempts at an exam, oldest first.
func (s *AttemptService) ListMine(ctx context.Context, examID uuid.UUID, studentID int) ([]model.AttemptView, error) {
	subs, err := s.subRepo.ListByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	views := make([]model.AttemptView, 0, len(subs))
	if err := copier.Copy(&views, &subs); err != nil {
		return nil, fmt.Errorf("copy attempts: %w", err)
	}
	return views, nil
}

func (s *AttemptService) owned(ctx context.Context, submissionID uuid.UUID, studentID int) (*model.Submission, error) {
	sub, err := s.subRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.StudentID != studentID {
		return nil, ErrNotAttemptOwner
	}
	return sub, nil
}

// overlayProgress replaces the attempt's stored progress with the cached
// autosave when the cache is at least as recent.
func (s *AttemptService) overlayProgress(ctx context.Context, sub *model.Submission) {
	if !sub.InProgress() {
		return
	}
	raw, err := s.rdb.Get(ctx, config.CacheKey.AttemptProgressKey(sub.ID.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("Progress cache read failed")
		}
		return
	}

	var snap model.ProgressSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("Discarding undecodable progress cache")
		return
	}
	if sub.LastSavedAt != nil && snap.SavedAt.Before(*sub.LastSavedAt) {
		return
	}
	sub.ProgressData = &snap.Progress
	sub.LastSavedAt = &snap.SavedAt
	sub.TimeRemainingSeconds = snap.Progress.TimeRemainingSeconds
}

func (s *AttemptService) enqueueViolation(ctx context.Context, ev model.ViolationEvent) {
	raw, err := json.Marshal(ev)
	if err == nil {
		err = s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw).Err()
	}
	if err != nil {
		s.log.Error().Err(err).Str("submission_id", ev.SubmissionID.String()).Msg("Failed to queue violation event")
	}
}

// mergeAnswers overlays explicit answers on the autosave snapshot.
func mergeAnswers(progress *model.ProgressData, explicit map[uuid.UUID]model.AnswerInput) map[uuid.UUID]model.AnswerInput {
	merged := make(map[uuid.UUID]model.AnswerInput)
	if progress != nil {
		for qid, in := range progress.Answers {
			merged[qid] = in
		}
	}
	for qid, in := range explicit {
		merged[qid] = in
	}
	return merged
}

// pairStore is the part of SubmissionRepository that serializes and rewrites
// the attempts of one (exam, student) pair inside a transaction.
type pairStore interface {
	LockPair(ctx context.Context, examID uuid.UUID, studentID int) error
	ListByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Submission, error)
	SetHighest(ctx context.Context, examID uuid.UUID, studentID int, highestID *uuid.UUID) error
}

// lockAttempts takes the pair lock for current and reloads every attempt of
// the pair. The returned pointer addresses current's row inside the slice.
func lockAttempts(ctx context.Context, repo pairStore, current *model.Submission) ([]model.Submission, *model.Submission, error) {
	if err := repo.LockPair(ctx, current.ExamID, current.StudentID); err != nil {
		return nil, nil, fmt.Errorf("lock attempts: %w", err)
	}
	subs, err := repo.ListByExamAndStudent(ctx, current.ExamID, current.StudentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	for i := range subs {
		if subs[i].ID == current.ID {
			return subs, &subs[i], nil
		}
	}
	return nil, nil, repository.ErrNotFound
}

// recomputeHighest re-derives the highest-score flag of one pair and writes
// it back when it moved. It returns the number of attempts whose flag changed.
func recomputeHighest(ctx context.Context, repo pairStore, subs []model.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	ptrs := make([]*model.Submission, len(subs))
	for i := range subs {
		ptrs[i] = &subs[i]
	}
	changed := lifecycle.RecomputeHighest(ptrs)
	if len(changed) == 0 {
		return 0, nil
	}

	var best *uuid.UUID
	for _, s := range ptrs {
		if s.IsHighestScore {
			id := s.ID
			best = &id
		}
	}
	if err := repo.SetHighest(ctx, subs[0].ExamID, subs[0].StudentID, best); err != nil {
		return 0, fmt.Errorf("set highest attempt: %w", err)
	}
	return len(changed), nil
}

// enqueueResult hands a finalized attempt to the result worker.
func enqueueResult(ctx context.Context, rdb *redis.Client, log zerolog.Logger, sub *model.Submission, terminated bool) {
	finished := time.Now()
	if sub.SubmittedAt != nil {
		finished = *sub.SubmittedAt
	}
	raw, err := json.Marshal(model.AttemptResult{
		SubmissionID: sub.ID,
		ExamID:       sub.ExamID,
		StudentID:    sub.StudentID,
		Status:       sub.Status,
		TotalScore:   sub.TotalScore,
		MaxScore:     sub.MaxScore,
		IsLate:       sub.IsLate,
		Terminated:   terminated,
		FinishedAt:   finished,
	})
	if err == nil {
		err = rdb.RPush(ctx, config.WorkerKey.AttemptResultsQueue, raw).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("submission_id", sub.ID.String()).Msg("Failed to queue attempt result")
	}
}

func publishMonitor(ctx context.Context, rdb *redis.Client, log zerolog.Logger, ev model.MonitorEvent) {
	raw, err := json.Marshal(ev)
	if err == nil {
		err = rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID.String()), raw).Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("exam_id", ev.ExamID.String()).Msg("Failed to publish monitor event")
	}
}
