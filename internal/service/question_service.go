package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stemsi/exstem-assess/internal/response"
)

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Create validates the question's answer key against its type and stores it.
func (s *QuestionService) Create(ctx context.Context, authorID int, req *model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ID:             uuid.New(),
		AuthorID:       authorID,
		Title:          req.Title,
		QuestionText:   req.QuestionText,
		QuestionType:   model.QuestionType(req.QuestionType),
		Options:        req.Options,
		CorrectAnswer:  req.CorrectAnswer,
		CorrectAnswers: req.CorrectAnswers,
		Points:         req.Points,
		Difficulty:     req.Difficulty,
		SubjectID:      req.SubjectID,
		Explanation:    req.Explanation,
	}

	def, err := codec.DecodeDefinition(q.QuestionType, codec.FromQuestion(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	// Store the canonical encoding so equivalent keys compare equal later.
	stored := codec.EncodeDefinition(def)
	q.Options = stored.Options
	q.CorrectAnswer = stored.CorrectAnswer
	q.CorrectAnswers = stored.CorrectAnswers

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.log.Info().
		Str("question_id", q.ID.String()).
		Str("question_type", string(q.QuestionType)).
		Int("author_id", authorID).
		Msg("Question created")
	return q, nil
}

// GetByID retrieves a question.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// ListByAuthor returns a page of the author's question bank.
func (s *QuestionService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Question, *response.Pagination, error) {
	page, perPage = clampPage(page, perPage)

	questions, total, err := s.questionRepo.ListByAuthor(ctx, authorID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, newPagination(page, perPage, total), nil
}

// UpdateMeta changes descriptive fields of an author's question.
func (s *QuestionService) UpdateMeta(ctx context.Context, id uuid.UUID, authorID int, req *model.UpdateQuestionMetaRequest) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.AuthorID != authorID {
		return nil, ErrNotQuestionAuthor
	}
	if err := s.questionRepo.UpdateMeta(ctx, id, req); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return s.questionRepo.GetByID(ctx, id)
}
