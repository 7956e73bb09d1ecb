package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/repository"
	"github.com/quizdeck/quizdeck-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotExamAuthor    = errors.New("not the author of this exam")
	ErrNoQuestions      = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
)

// ExamService handles exam authoring, publishing and the Redis paper cache.
// The cached paper carries correct answers; it stays server side and is
// projected through the session package before anything reaches a client.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID, without questions.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves an author's exams with pagination. authorID 0
// lists across authors, used by maintenance tooling.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.ListByAuthorPaginated(ctx, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return exams, pagination, nil
}

// ListPublished returns all published exams for the taker lobby.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create inserts a new exam as DRAFT.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	exam.Status = model.ExamStatusDraft
	if exam.WinPercentage <= 0 || exam.WinPercentage > 100 {
		exam.WinPercentage = model.DefaultWinPercentage
	}
	return s.examRepo.Create(ctx, exam)
}

// Update modifies an existing draft exam.
func (s *ExamService) Update(ctx context.Context, authorID int, exam *model.Exam) error {
	existing, err := s.examRepo.GetByID(ctx, exam.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Update(ctx, exam)
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Delete(ctx, id)
}

// ReplaceQuestions swaps a draft exam's full question set.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, authorID int, questions []model.Question) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if authorID != 0 && exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.questionRepo.ReplaceForExam(ctx, examID, questions)
}

// Publish changes exam status to PUBLISHED and caches the full paper in
// Redis so attempt starts bypass PostgreSQL.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// Archive takes a published exam out of the lobby and drops its paper cache.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if authorID != 0 && exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop paper cache")
	}
	return nil
}

// WarmExamCache loads an exam's full paper from PostgreSQL into Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	paper := *exam
	paper.Questions = questions

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	key := config.CacheKey.ExamPaperKey(exam.ID.String())
	if err := s.rdb.Set(ctx, key, paperJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published exams into Redis on application
// startup, so the first attempt of the day never lazy-loads under load.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetFullPaper retrieves a published exam with its questions, preferring the
// Redis cache and self-healing from PostgreSQL on a miss.
func (s *ExamService) GetFullPaper(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamPaperKey(examID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()

	if err == nil {
		var paper model.Exam
		if jErr := json.Unmarshal(data, &paper); jErr == nil {
			return &paper, nil
		}
		// Corrupt cache entry: fall through to the DB and rewrite it.
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt paper cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	exam.Questions = questions
	return exam, nil
}
