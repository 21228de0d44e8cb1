package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type questionSourceStub struct {
	questions []models.Question
	err       error
}

func (q questionSourceStub) List(context.Context, int64) ([]models.Question, bool, error) {
	return q.questions, false, q.err
}

type answerRecorderStub struct {
	mu   sync.Mutex
	reqs []models.SubmitAnswerRequest
}

func (a *answerRecorderStub) SubmitAnswer(_ context.Context, _ int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reqs = append(a.reqs, req)
	return &models.SubmissionRecord{}, nil
}

func (a *answerRecorderStub) requests() []models.SubmitAnswerRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.SubmitAnswerRequest(nil), a.reqs...)
}

type placementBackendStub struct {
	questions []models.Question
	scores    []int
}

func (p *placementBackendStub) PlacementQuestions(context.Context) ([]models.Question, error) {
	return p.questions, nil
}

func (p *placementBackendStub) CompletePlacement(_ context.Context, _ int64, score int) (*models.PlacementResult, error) {
	p.scores = append(p.scores, score)
	return &models.PlacementResult{Message: "Placement completed", NewLevel: score + 1}, nil
}

func quizQuestions() []models.Question {
	return []models.Question{
		{ID: 10, LessonID: 7, Content: "2+2", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", CorrectAnswer: "B"},
		{ID: 11, LessonID: 7, Content: "3+3", OptionA: "6", OptionB: "7", OptionC: "8", OptionD: "9", CorrectAnswer: "A"},
	}
}

func newQuizServiceForTest(t *testing.T, questions questionSource, answers answerRecorder, placement placementBackend) (*QuizService, *quiz.FakeClock, *CacheService, *MetricsService) {
	t.Helper()
	clock := quiz.NewFakeClock(time.Unix(0, 0))
	cache, _ := newMemoryCache(t)
	metrics := NewMetricsService()
	svc := NewQuizService(QuizServiceParams{
		Questions: questions,
		Answers:   answers,
		Placement: placement,
		Registry:  quiz.NewRegistry(clock, time.Hour, metrics.SetActiveAttempts),
		Cache:     cache,
		Metrics:   metrics,
		Clock:     clock,
		Settings:  quiz.Settings{QuestionTimeLimit: 30 * time.Second, FeedbackDelay: 1500 * time.Millisecond, SubmitTimeout: time.Second},
	})
	return svc, clock, cache, metrics
}

func TestQuizServiceSelectedOptionIsSubmitted(t *testing.T) {
	answers := &answerRecorderStub{}
	svc, clock, cache, metrics := newQuizServiceForTest(t, questionSourceStub{questions: quizQuestions()}, answers, nil)
	ctx := context.Background()
	statsKey := userQueryKey(12, "GET", "/history/stats/12")
	require.NoError(t, cache.Set(ctx, statsKey, 1, 0))

	snap, err := svc.Start(ctx, studentSession, 7)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatePresenting, snap.State)
	assert.Equal(t, int64(1), metrics.Snapshot().ActiveAttempts)

	clock.Advance(3 * time.Second)
	_, err = svc.Select(snap.ID, 12, "B")
	require.NoError(t, err)
	_, err = svc.Confirm(snap.ID, 12)
	require.NoError(t, err)

	reqs := answers.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.SubmitAnswerRequest{QuestionID: 10, GivenAnswer: "B", TimeSpentSeconds: 3}, reqs[0])

	hit, err := cache.Get(ctx, statsKey, new(int))
	require.NoError(t, err)
	assert.False(t, hit, "answers drop the user's cached progress")

	clock.Advance(1500 * time.Millisecond)
	got, err := svc.Get(snap.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Index)
}

func TestQuizServiceCountdownExpirySubmitsNone(t *testing.T) {
	answers := &answerRecorderStub{}
	svc, clock, _, _ := newQuizServiceForTest(t, questionSourceStub{questions: quizQuestions()}, answers, nil)

	snap, err := svc.Start(context.Background(), studentSession, 7)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	reqs := answers.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.NoAnswer, reqs[0].GivenAnswer)
	assert.Equal(t, 30, reqs[0].TimeSpentSeconds)

	got, err := svc.Get(snap.ID, 12)
	require.NoError(t, err)
	require.NotNil(t, got.LastAnswer)
	assert.True(t, got.LastAnswer.TimedOut)
}

func TestQuizServiceAttemptsBelongToTheirOwner(t *testing.T) {
	svc, _, _, _ := newQuizServiceForTest(t, questionSourceStub{questions: quizQuestions()}, &answerRecorderStub{}, nil)
	snap, err := svc.Start(context.Background(), studentSession, 7)
	require.NoError(t, err)

	_, err = svc.Get(snap.ID, 99)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Select(snap.ID, 99, "A")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestQuizServiceCancelForgetsAttempt(t *testing.T) {
	answers := &answerRecorderStub{}
	svc, clock, _, metrics := newQuizServiceForTest(t, questionSourceStub{questions: quizQuestions()}, answers, nil)
	snap, err := svc.Start(context.Background(), studentSession, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(snap.ID, 12))
	clock.Advance(time.Minute)
	assert.Empty(t, answers.requests())
	_, err = svc.Get(snap.ID, 12)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, int64(0), metrics.Snapshot().ActiveAttempts)
}

func TestQuizServiceStartFailures(t *testing.T) {
	svc, _, _, _ := newQuizServiceForTest(t, questionSourceStub{}, &answerRecorderStub{}, nil)
	_, err := svc.Start(context.Background(), studentSession, 7)
	assert.ErrorIs(t, err, appErrors.ErrValidation, "a lesson without questions cannot be attempted")
	assert.Zero(t, svc.Registry().Len())

	svc, _, _, _ = newQuizServiceForTest(t, questionSourceStub{err: appErrors.Clone(appErrors.ErrNotFound, "Lesson not found")}, &answerRecorderStub{}, nil)
	_, err = svc.Start(context.Background(), studentSession, 7)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Start(context.Background(), nil, 7)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestQuizServicePlacementFlow(t *testing.T) {
	backend := &placementBackendStub{questions: []models.Question{
		{ID: 1, Content: "Capital of France?", CorrectAnswer: "Paris"},
		{ID: 2, Content: "5 x 5?", CorrectAnswer: "25"},
	}}
	svc, _, cache, _ := newQuizServiceForTest(t, questionSourceStub{}, &answerRecorderStub{}, backend)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, userQueryKey(12, "GET", "/history/stats/12"), 1, 0))

	snap, err := svc.StartPlacement(ctx, studentSession)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)

	_, err = svc.AnswerPlacement(snap.ID, 12, "   ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AnswerPlacement(snap.ID, 12, " paris ")
	require.NoError(t, err)
	final, err := svc.AnswerPlacement(snap.ID, 12, "24")
	require.NoError(t, err)
	assert.Equal(t, quiz.StateFinished, final.State)
	assert.Equal(t, []int{1}, backend.scores)
	assert.Equal(t, 2, final.NewLevel)

	hit, err := cache.Get(ctx, userQueryKey(12, "GET", "/history/stats/12"), new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	got, err := svc.Placement(snap.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, quiz.StateFinished, got.State)
}
