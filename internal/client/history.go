package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

// Stats returns aggregate accuracy for a student.
func (c *Client) Stats(ctx context.Context, userID int64) (*models.StudentStats, error) {
	var out models.StudentStats
	rc := call{method: http.MethodGet, path: idPath("/history/stats/", userID), endpoint: "GET /history/stats/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Summary returns per-lesson success rates for a student.
func (c *Client) Summary(ctx context.Context, userID int64) (*models.StudentSummary, error) {
	var out models.StudentSummary
	rc := call{method: http.MethodGet, path: idPath("/history/summary/", userID), endpoint: "GET /history/summary/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trend returns the raw progress series for a student.
func (c *Client) Trend(ctx context.Context, userID int64) (models.Trend, error) {
	var out json.RawMessage
	rc := call{method: http.MethodGet, path: idPath("/history/trend/", userID), endpoint: "GET /history/trend/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAnswer records one answered question.
func (c *Client) SubmitAnswer(ctx context.Context, userID int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error) {
	var out models.SubmissionRecord
	rc := call{
		method: http.MethodPost,
		path:   "/history/submit",
		query:  url.Values{"user_id": []string{strconv.FormatInt(userID, 10)}},
		body:   req,
	}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TeacherAnalytics returns class-wide performance.
func (c *Client) TeacherAnalytics(ctx context.Context) (*models.TeacherAnalytics, error) {
	var out models.TeacherAnalytics
	if err := c.do(ctx, call{method: http.MethodGet, path: "/history/teacher/analytics"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NextStep returns the backend's recommendation for a student.
func (c *Client) NextStep(ctx context.Context, userID int64) (*models.Recommendation, error) {
	var out models.Recommendation
	rc := call{method: http.MethodGet, path: idPath("/recommendation/next-step/", userID), endpoint: "GET /recommendation/next-step/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
