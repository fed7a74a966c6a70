package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/database"
	"github.com/stemsi/exstem-assess/internal/lifecycle"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
)

// GradingService serves instructors: review of finalized attempts, manual
// scoring and highest-attempt maintenance.
type GradingService struct {
	db         database.TxBeginner
	exams      *ExamService
	subRepo    *repository.SubmissionRepository
	answerRepo *repository.AnswerRepository
	manager    *lifecycle.Manager
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	db database.TxBeginner,
	exams *ExamService,
	subRepo *repository.SubmissionRepository,
	answerRepo *repository.AnswerRepository,
	manager *lifecycle.Manager,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		db:         db,
		exams:      exams,
		subRepo:    subRepo,
		answerRepo: answerRepo,
		manager:    manager,
		rdb:        rdb,
		log:        log.With().Str("component", "grading_service").Logger(),
	}
}

// Review returns a finalized attempt with every answer rendered for a human,
// in exam order. authorID 0 skips the authorship check.
func (s *GradingService) Review(ctx context.Context, submissionID uuid.UUID, authorID int) (*model.SubmissionReview, error) {
	sub, err := s.subRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	answers, err := s.answerRepo.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	review := &model.SubmissionReview{
		Submission: *sub,
		Answers:    make([]model.ReviewedAnswer, 0, len(answers)),
	}
	order := make(map[uuid.UUID]int, len(exam.Questions))
	for _, a := range answers {
		ra := model.ReviewedAnswer{Answer: a}
		eq, ok := exam.Question(a.QuestionID)
		if !ok {
			ra.RenderError = lifecycle.ErrQuestionNotInExam.Error()
		} else {
			order[a.QuestionID] = eq.OrderNum
			rendered, err := codec.RenderStored(a.QuestionType, codec.FromQuestion(&eq.Question), a.Input())
			if err != nil {
				ra.RenderError = err.Error()
			}
			ra.Rendered = rendered
		}
		review.Answers = append(review.Answers, ra)
	}
	sort.SliceStable(review.Answers, func(i, j int) bool {
		return order[review.Answers[i].QuestionID] < order[review.Answers[j].QuestionID]
	})
	return review, nil
}

// PendingQueue lists attempts awaiting manual review on the author's exams.
func (s *GradingService) PendingQueue(ctx context.Context, authorID, limit int) ([]model.Submission, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	subs, err := s.subRepo.ListPendingByAuthor(ctx, authorID, limit)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

// GradeAnswer records a manual score for one answer and re-totals the attempt.
func (s *GradingService) GradeAnswer(ctx context.Context, submissionID, questionID uuid.UUID, graderID int, req *model.GradeAnswerRequest) (*model.Answer, error) {
	current, err := s.subRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Load(ctx, current.ExamID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != graderID {
		return nil, ErrNotExamAuthor
	}

	var (
		sub    *model.Submission
		graded *model.Answer
	)
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		repo := s.subRepo.WithTx(tx)
		answerRepo := s.answerRepo.WithTx(tx)
		subs, target, err := lockAttempts(ctx, repo, current)
		if err != nil {
			return err
		}
		sub = target

		answers, err := answerRepo.ListBySubmission(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}
		graded, err = s.manager.GradeAnswer(sub, answers, questionID, *req.Score, req.Feedback, graderID)
		if err != nil {
			return err
		}
		if err := answerRepo.SaveGrade(ctx, graded); err != nil {
			return fmt.Errorf("save grade: %w", err)
		}
		if err := repo.Save(ctx, sub); err != nil {
			return fmt.Errorf("save attempt: %w", err)
		}
		_, err = recomputeHighest(ctx, repo, subs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Str("question_id", questionID.String()).
		Int("grader_id", graderID).
		Str("status", string(sub.Status)).
		Msg("Answer graded")
	enqueueResult(ctx, s.rdb, s.log, sub, sub.ProctoringData.IsTerminatedForViolations)
	return graded, nil
}

// RecomputeHighest re-derives the highest-score flag for every student of an
// exam, one pair per transaction. It returns how many attempts changed.
func (s *GradingService) RecomputeHighest(ctx context.Context, examID uuid.UUID) (int, error) {
	students, err := s.subRepo.ListStudentIDs(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("list students: %w", err)
	}

	changed := 0
	for _, studentID := range students {
		err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
			repo := s.subRepo.WithTx(tx)
			if err := repo.LockPair(ctx, examID, studentID); err != nil {
				return err
			}
			subs, err := repo.ListByExamAndStudent(ctx, examID, studentID)
			if err != nil {
				return err
			}
			n, err := recomputeHighest(ctx, repo, subs)
			changed += n
			return err
		})
		if err != nil {
			return changed, fmt.Errorf("student %d: %w", studentID, err)
		}
	}

	s.log.Info().Str("exam_id", examID.String()).Int("changed", changed).Msg("Highest attempts recomputed")
	return changed, nil
}
