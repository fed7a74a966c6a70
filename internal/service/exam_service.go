package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stemsi/exstem-assess/internal/response"
)

// ExamService handles exam authoring and the Redis cache of published exams.
type ExamService struct {
	db           database.TxBeginner
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	subRepo      *repository.SubmissionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	db database.TxBeginner,
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	subRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		db:           db,
		examRepo:     examRepo,
		questionRepo: questionRepo,
		subRepo:      subRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// Create inserts a new exam or homework as DRAFT.
func (s *ExamService) Create(ctx context.Context, authorID int, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ID:                         uuid.New(),
		Kind:                       model.ExamKind(req.Kind),
		Title:                      req.Title,
		Description:                req.Description,
		AuthorID:                   authorID,
		AttemptsAllowed:            req.AttemptsAllowed,
		DurationMinutes:            req.DurationMinutes,
		AvailableFrom:              req.AvailableFrom,
		AvailableUntil:             req.AvailableUntil,
		RandomizeQuestions:         req.RandomizeQuestions,
		RandomizeOptions:           req.RandomizeOptions,
		EnableProctoring:           req.EnableProctoring,
		ProctoringWarningThreshold: req.ProctoringWarningThreshold,
		ProctoringAutoTerminate:    req.ProctoringAutoTerminate,
		Status:                     model.ExamStatusDraft,
	}
	// Only homework has a due date; exams close with their window.
	if exam.Kind == model.ExamKindHomework {
		exam.DueDate = req.DueDate
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// GetByID retrieves an exam with its questions from PostgreSQL.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetWithQuestions(ctx, id)
}

// AttachQuestions replaces the question list of a draft exam.
func (s *ExamService) AttachQuestions(ctx context.Context, examID uuid.UUID, authorID int, req *model.AttachQuestionsRequest) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	ids := make([]uuid.UUID, 0, len(req.Questions))
	for _, item := range req.Questions {
		ids = append(ids, item.QuestionID)
	}
	found, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("question %s: %w", id, ErrQuestionNotFound)
		}
	}

	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return s.examRepo.WithTx(tx).ReplaceQuestions(ctx, examID, req.Questions)
	})
}

// Publish opens a draft exam to students and warms its cache. Every attached
// question must carry a decodable answer key.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetWithQuestions(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	if len(exam.Questions) == 0 {
		return ErrNoQuestions
	}
	for _, eq := range exam.Questions {
		if _, err := codec.DecodeDefinition(eq.Question.QuestionType, codec.FromQuestion(&eq.Question)); err != nil {
			return fmt.Errorf("question %s: %w: %w", eq.QuestionID, ErrInvalidDefinition, err)
		}
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	exam.Status = model.ExamStatusPublished

	if err := s.WarmExamCache(ctx, exam); err != nil {
		// Load falls back to PostgreSQL, so a cold cache is not fatal.
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to warm exam cache")
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// Archive closes a published exam. Finalized attempts stay reviewable.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}
	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamDefinitionKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop exam cache")
	}
	return nil
}

// Load returns an exam with its questions, from Redis when cached.
func (s *ExamService) Load(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamDefinitionKey(examID.String())
	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var exam model.Exam
		if jsonErr := json.Unmarshal(raw, &exam); jsonErr == nil {
			return &exam, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Discarding undecodable exam cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Exam cache read failed")
	}

	exam, err := s.examRepo.GetWithQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamStatusPublished {
		if err := s.WarmExamCache(ctx, exam); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to warm exam cache")
		}
	}
	return exam, nil
}

// WarmExamCache stores a published exam with its questions in Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	raw, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamDefinitionKey(exam.ID.String()), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(exam.Questions)).
		Msg("Exam cache warmed")
	return nil
}

// PrewarmAllCaches caches every published exam. Called on server startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.examRepo.ListPublishedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	warmed := 0
	for _, id := range ids {
		exam, err := s.examRepo.GetWithQuestions(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Str("exam_id", id.String()).Msg("Failed to load exam for prewarm")
			continue
		}
		if err := s.WarmExamCache(ctx, exam); err != nil {
			s.log.Error().Err(err).Str("exam_id", id.String()).Msg("Failed to prewarm exam")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(ids)).Msg("Exam caches prewarmed")
	return nil
}

// ListSubmissions returns a page of an exam's attempts for its author.
func (s *ExamService) ListSubmissions(ctx context.Context, examID uuid.UUID, authorID int, status *model.SubmissionStatus, page, perPage int) ([]model.Submission, *response.Pagination, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if exam.AuthorID != authorID {
		return nil, nil, ErrNotExamAuthor
	}

	page, perPage = clampPage(page, perPage)
	subs, total, err := s.subRepo.ListByExam(ctx, examID, status, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, newPagination(page, perPage, total), nil
}
