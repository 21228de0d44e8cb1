package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

func roleQuery(role models.UserRole) url.Values {
	if role == "" {
		return nil
	}
	return url.Values{"role": []string{string(role)}}
}

// ListLessons returns every lesson.
func (c *Client) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := c.do(ctx, call{method: http.MethodGet, path: "/lessons/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLesson returns one lesson.
func (c *Client) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	var out models.Lesson
	rc := call{method: http.MethodGet, path: idPath("/lessons/", id), endpoint: "GET /lessons/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLesson stores a lesson on behalf of role.
func (c *Client) CreateLesson(ctx context.Context, role models.UserRole, req models.CreateLessonRequest) (*models.Lesson, error) {
	var out models.Lesson
	rc := call{method: http.MethodPost, path: "/lessons/", query: roleQuery(role), body: req}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLesson removes a lesson and its questions.
func (c *Client) DeleteLesson(ctx context.Context, role models.UserRole, id int64) error {
	rc := call{
		method:   http.MethodDelete,
		path:     idPath("/lessons/", id),
		endpoint: "DELETE /lessons/{id}",
		query:    roleQuery(role),
	}
	return c.do(ctx, rc, nil)
}
