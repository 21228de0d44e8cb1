package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type questionBackendStub struct {
	questions map[int64][]models.Question
	listCalls int
	created   []models.CreateQuestionRequest
	deleted   []int64
	generated []int64
}

func (b *questionBackendStub) ListLessonQuestions(_ context.Context, lessonID int64) ([]models.Question, error) {
	b.listCalls++
	return append([]models.Question(nil), b.questions[lessonID]...), nil
}

func (b *questionBackendStub) CreateQuestion(_ context.Context, _ models.UserRole, req models.CreateQuestionRequest) (*models.Question, error) {
	b.created = append(b.created, req)
	q := models.Question{ID: int64(50 + len(b.created)), LessonID: req.LessonID, Content: req.Content, CorrectAnswer: req.CorrectAnswer, DifficultyLevel: req.DifficultyLevel}
	b.questions[req.LessonID] = append(b.questions[req.LessonID], q)
	return &q, nil
}

func (b *questionBackendStub) GenerateQuestions(_ context.Context, lessonID int64) (json.RawMessage, error) {
	b.generated = append(b.generated, lessonID)
	return json.RawMessage(`{"message":"generated 3 questions"}`), nil
}

func (b *questionBackendStub) DeleteQuestion(_ context.Context, _ models.UserRole, id int64) error {
	b.deleted = append(b.deleted, id)
	for lessonID, qs := range b.questions {
		kept := qs[:0]
		for _, q := range qs {
			if q.ID != id {
				kept = append(kept, q)
			}
		}
		b.questions[lessonID] = kept
	}
	return nil
}

func newQuestionBackend() *questionBackendStub {
	return &questionBackendStub{questions: map[int64][]models.Question{
		7: {
			{ID: 1, LessonID: 7, Content: "2+2", CorrectAnswer: "B"},
			{ID: 2, LessonID: 7, Content: "3+3", CorrectAnswer: "A"},
		},
	}}
}

func validQuestion() models.CreateQuestionRequest {
	return models.CreateQuestionRequest{Content: "5+5", OptionA: "10", OptionB: "11", OptionC: "12", OptionD: "13", CorrectAnswer: " a "}
}

func TestQuestionServiceCreateNormalizesAndInvalidates(t *testing.T) {
	cache, _ := newMemoryCache(t)
	backend := newQuestionBackend()
	svc := NewQuestionService(backend, cache, nil, nil)
	ctx := context.Background()

	_, _, err := svc.List(ctx, 7)
	require.NoError(t, err)

	q, err := svc.Create(ctx, models.RoleTeacher, 7, validQuestion())
	require.NoError(t, err)
	assert.Equal(t, "A", q.CorrectAnswer)
	assert.Equal(t, 1, backend.created[0].DifficultyLevel)
	assert.Equal(t, int64(7), backend.created[0].LessonID)

	questions, hit, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, questions, 3)
}

func TestQuestionServiceCreateValidation(t *testing.T) {
	svc := NewQuestionService(newQuestionBackend(), nil, nil, nil)

	bad := validQuestion()
	bad.CorrectAnswer = "E"
	_, err := svc.Create(context.Background(), models.RoleTeacher, 7, bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad = validQuestion()
	bad.DifficultyLevel = 6
	_, err = svc.Create(context.Background(), models.RoleTeacher, 7, bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), models.RoleTeacher, 0, validQuestion())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestQuestionServiceDeleteRefetches(t *testing.T) {
	cache, _ := newMemoryCache(t)
	backend := newQuestionBackend()
	svc := NewQuestionService(backend, cache, nil, nil)
	ctx := context.Background()
	_, _, err := svc.List(ctx, 7)
	require.NoError(t, err)

	res, err := svc.Delete(ctx, models.RoleTeacher, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, backend.deleted)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, int64(2), res.Questions[0].ID)
	assert.Equal(t, 2, backend.listCalls)
}

func TestQuestionServiceGeneratePassesPayloadThrough(t *testing.T) {
	backend := newQuestionBackend()
	svc := NewQuestionService(backend, nil, nil, nil)

	payload, err := svc.Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"generated 3 questions"}`, string(payload))
	assert.Equal(t, []int64{7}, backend.generated)
}
