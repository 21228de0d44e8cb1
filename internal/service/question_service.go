package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type questionBackend interface {
	ListLessonQuestions(ctx context.Context, lessonID int64) ([]models.Question, error)
	CreateQuestion(ctx context.Context, role models.UserRole, req models.CreateQuestionRequest) (*models.Question, error)
	GenerateQuestions(ctx context.Context, lessonID int64) (json.RawMessage, error)
	DeleteQuestion(ctx context.Context, role models.UserRole, id int64) error
}

func questionListKey(lessonID int64) string {
	return queryKey(http.MethodGet, fmt.Sprintf("/questions/lesson/%d", lessonID))
}

// QuestionService backs ViewQuestions, AddQuestion and question generation. It also feeds
// quiz attempts their questions.
type QuestionService struct {
	backend   questionBackend
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(backend questionBackend, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuestionService{backend: backend, cache: cache, validator: validate, logger: logger}
}

// List returns the questions of a lesson.
func (s *QuestionService) List(ctx context.Context, lessonID int64) ([]models.Question, bool, error) {
	if lessonID <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid lesson id")
	}
	return cachedRead(ctx, s.cache, questionListKey(lessonID), func(ctx context.Context) ([]models.Question, error) {
		questions, err := s.backend.ListLessonQuestions(ctx, lessonID)
		if questions == nil && err == nil {
			questions = []models.Question{}
		}
		return questions, err
	})
}

// Create adds a question to lessonID.
func (s *QuestionService) Create(ctx context.Context, role models.UserRole, lessonID int64, req models.CreateQuestionRequest) (*models.Question, error) {
	if lessonID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid lesson id")
	}
	req.LessonID = lessonID
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	question, err := s.backend.CreateQuestion(ctx, role, req)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, questionListKey(lessonID))
	return question, nil
}

// Generate asks the backend to author questions for lessonID. The payload is passed through.
func (s *QuestionService) Generate(ctx context.Context, lessonID int64) (json.RawMessage, error) {
	if lessonID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid lesson id")
	}
	payload, err := s.backend.GenerateQuestions(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, questionListKey(lessonID))
	s.logger.Info("questions generated", zap.Int64("lesson_id", lessonID))
	return payload, nil
}

// Delete removes a question and returns the lesson's list fetched again.
func (s *QuestionService) Delete(ctx context.Context, role models.UserRole, lessonID, questionID int64) (*dto.QuestionDeleteResponse, error) {
	if lessonID <= 0 || questionID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid question id")
	}
	if err := s.backend.DeleteQuestion(ctx, role, questionID); err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, questionListKey(lessonID))
	questions, _, err := s.List(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return &dto.QuestionDeleteResponse{DeletedID: questionID, Questions: questions}, nil
}
