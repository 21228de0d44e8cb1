package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type questionSource interface {
	List(ctx context.Context, lessonID int64) ([]models.Question, bool, error)
}

type answerRecorder interface {
	SubmitAnswer(ctx context.Context, userID int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error)
}

type placementBackend interface {
	PlacementQuestions(ctx context.Context) ([]models.Question, error)
	CompletePlacement(ctx context.Context, userID int64, score int) (*models.PlacementResult, error)
}

// QuizServiceParams groups constructor dependencies.
type QuizServiceParams struct {
	Questions questionSource
	Answers   answerRecorder
	Placement placementBackend
	Registry  *quiz.Registry
	Cache     *CacheService
	Metrics   *MetricsService
	Clock     quiz.Clock
	Settings  quiz.Settings
	Logger    *zap.Logger
}

// QuizService starts and drives quiz attempts and placement tests held in the registry.
type QuizService struct {
	questions questionSource
	answers   answerRecorder
	placement placementBackend
	registry  *quiz.Registry
	cache     *CacheService
	metrics   *MetricsService
	clock     quiz.Clock
	settings  quiz.Settings
	logger    *zap.Logger
}

// NewQuizService constructs a QuizService.
func NewQuizService(params QuizServiceParams) *QuizService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := params.Clock
	if clock == nil {
		clock = quiz.RealClock()
	}
	registry := params.Registry
	if registry == nil {
		registry = quiz.NewRegistry(clock, time.Hour, params.Metrics.SetActiveAttempts)
	}
	return &QuizService{
		questions: params.Questions,
		answers:   params.Answers,
		placement: params.Placement,
		registry:  registry,
		cache:     params.Cache,
		metrics:   params.Metrics,
		clock:     clock,
		settings:  params.Settings,
		logger:    logger,
	}
}

// Registry exposes the attempt registry for sweeping and logout cleanup.
func (s *QuizService) Registry() *quiz.Registry {
	return s.registry
}

// recordingSubmitter forwards answers and drops the user's cached progress after each one.
type recordingSubmitter struct {
	next    answerRecorder
	cache   *CacheService
	metrics *MetricsService
	keys    map[int64]models.Question
}

func (r *recordingSubmitter) SubmitAnswer(ctx context.Context, userID int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error) {
	record, err := r.next.SubmitAnswer(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	timedOut := req.GivenAnswer == models.NoAnswer
	correct := false
	if q, ok := r.keys[req.QuestionID]; ok {
		correct = !timedOut && q.IsCorrect(req.GivenAnswer)
	}
	r.metrics.RecordAnswer(correct, timedOut)
	_ = r.cache.Invalidate(context.WithoutCancel(ctx), userQueryPattern(userID))
	return record, nil
}

// Start loads the lesson's questions and presents the first one.
func (s *QuizService) Start(ctx context.Context, current *models.Session, lessonID int64) (quiz.Snapshot, error) {
	if current == nil {
		return quiz.Snapshot{}, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	questions, _, err := s.questions.List(ctx, lessonID)
	if err != nil {
		return quiz.Snapshot{}, err
	}

	keys := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		keys[q.ID] = q
	}
	id := quiz.NewID()
	attempt := quiz.NewAttempt(quiz.Params{
		ID:          id,
		OwnerID:     current.UserID,
		LessonID:    lessonID,
		Submitter:   &recordingSubmitter{next: s.answers, cache: s.cache, metrics: s.metrics, keys: keys},
		Clock:       s.clock,
		Settings:    s.settings,
		Logger:      s.logger,
		BaseContext: ctx,
		OnFinish: func(snap quiz.Snapshot) {
			s.logger.Info("quiz finished",
				zap.String("attempt_id", snap.ID),
				zap.Int64("lesson_id", snap.LessonID),
				zap.Int("score", snap.Score),
				zap.Int("total", snap.Total))
		},
	})
	if err := attempt.Begin(questions); err != nil {
		return quiz.Snapshot{}, err
	}
	s.registry.Add(attempt)
	return attempt.Snapshot(), nil
}

// Attempt returns a live attempt owned by ownerID.
func (s *QuizService) Attempt(id string, ownerID int64) (*quiz.Attempt, error) {
	return s.registry.Attempt(id, ownerID)
}

// Get returns the attempt's current snapshot.
func (s *QuizService) Get(id string, ownerID int64) (quiz.Snapshot, error) {
	attempt, err := s.registry.Attempt(id, ownerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return attempt.Snapshot(), nil
}

// Select marks an option on the presented question.
func (s *QuizService) Select(id string, ownerID int64, option string) (quiz.Snapshot, error) {
	attempt, err := s.registry.Attempt(id, ownerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return attempt.Select(option)
}

// Confirm answers the presented question with the selected option.
func (s *QuizService) Confirm(id string, ownerID int64) (quiz.Snapshot, error) {
	attempt, err := s.registry.Attempt(id, ownerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return attempt.Confirm()
}

// Acknowledge dismisses the hint after a wrong answer and records it.
func (s *QuizService) Acknowledge(id string, ownerID int64) (quiz.Snapshot, error) {
	attempt, err := s.registry.Attempt(id, ownerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return attempt.Acknowledge()
}

// Cancel tears an attempt down and forgets it.
func (s *QuizService) Cancel(id string, ownerID int64) error {
	attempt, err := s.registry.Attempt(id, ownerID)
	if err != nil {
		return err
	}
	attempt.Cancel()
	s.registry.Remove(id)
	return nil
}

// StartPlacement loads the diagnostic questions and presents the first one.
func (s *QuizService) StartPlacement(ctx context.Context, current *models.Session) (quiz.PlacementSnapshot, error) {
	if current == nil {
		return quiz.PlacementSnapshot{}, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	if s.placement == nil {
		return quiz.PlacementSnapshot{}, appErrors.Clone(appErrors.ErrInternal, "placement test is not configured")
	}
	questions, err := s.placement.PlacementQuestions(ctx)
	if err != nil {
		return quiz.PlacementSnapshot{}, err
	}
	uid := current.UserID
	placement := quiz.NewPlacement(quiz.PlacementParams{
		ID:            quiz.NewID(),
		OwnerID:       uid,
		Completer:     s.placement,
		Clock:         s.clock,
		SubmitTimeout: s.settings.SubmitTimeout,
		Logger:        s.logger,
		BaseContext:   ctx,
		OnFinish: func(snap quiz.PlacementSnapshot) {
			_ = s.cache.Invalidate(context.Background(), userQueryPattern(uid))
			s.logger.Info("placement completed",
				zap.Int64("user_id", uid),
				zap.Int("correct", snap.Correct),
				zap.Int("new_level", snap.NewLevel))
		},
	})
	if err := placement.Begin(questions); err != nil {
		return quiz.PlacementSnapshot{}, err
	}
	s.registry.Add(placement)
	return placement.Snapshot(), nil
}

// Placement returns the current snapshot of a placement test.
func (s *QuizService) Placement(id string, ownerID int64) (quiz.PlacementSnapshot, error) {
	placement, err := s.registry.Placement(id, ownerID)
	if err != nil {
		return quiz.PlacementSnapshot{}, err
	}
	return placement.Snapshot(), nil
}

// AnswerPlacement records a free-text answer to the presented diagnostic question.
func (s *QuizService) AnswerPlacement(id string, ownerID int64, answer string) (quiz.PlacementSnapshot, error) {
	placement, err := s.registry.Placement(id, ownerID)
	if err != nil {
		return quiz.PlacementSnapshot{}, err
	}
	return placement.Answer(answer)
}
