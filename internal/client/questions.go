package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

// ListLessonQuestions returns the questions attached to a lesson.
func (c *Client) ListLessonQuestions(ctx context.Context, lessonID int64) ([]models.Question, error) {
	var out []models.Question
	rc := call{method: http.MethodGet, path: idPath("/questions/lesson/", lessonID), endpoint: "GET /questions/lesson/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlacementQuestions returns the diagnostic question set.
func (c *Client) PlacementQuestions(ctx context.Context) ([]models.Question, error) {
	var out []models.Question
	if err := c.do(ctx, call{method: http.MethodGet, path: "/questions/placement-test"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateQuestion stores a question on behalf of role.
func (c *Client) CreateQuestion(ctx context.Context, role models.UserRole, req models.CreateQuestionRequest) (*models.Question, error) {
	var out models.Question
	rc := call{method: http.MethodPost, path: "/questions/", query: roleQuery(role), body: req}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateQuestions asks the backend to author questions for a lesson. The payload is
// returned untouched because its shape is owned by the generator.
func (c *Client) GenerateQuestions(ctx context.Context, lessonID int64) (json.RawMessage, error) {
	var out json.RawMessage
	rc := call{method: http.MethodPost, path: idPath("/questions/generate/", lessonID), endpoint: "POST /questions/generate/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteQuestion removes one question.
func (c *Client) DeleteQuestion(ctx context.Context, role models.UserRole, id int64) error {
	rc := call{
		method:   http.MethodDelete,
		path:     idPath("/questions/", id),
		endpoint: "DELETE /questions/{id}",
		query:    roleQuery(role),
	}
	return c.do(ctx, rc, nil)
}
