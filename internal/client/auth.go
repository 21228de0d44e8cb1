package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account; the backend echoes the stored user.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, error) {
	var out models.RegisteredUser
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserStatus returns placement progress for a user.
func (c *Client) UserStatus(ctx context.Context, userID int64) (*models.UserStatus, error) {
	var out models.UserStatus
	rc := call{method: http.MethodGet, path: idPath("/auth/me/", userID), endpoint: "GET /auth/me/{id}"}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompletePlacement reports the placement score and returns the assigned level.
func (c *Client) CompletePlacement(ctx context.Context, userID int64, score int) (*models.PlacementResult, error) {
	var out models.PlacementResult
	rc := call{
		method:   http.MethodPost,
		path:     idPath("/auth/complete-placement/", userID),
		endpoint: "POST /auth/complete-placement/{id}",
		query:    url.Values{"score": []string{strconv.Itoa(score)}},
	}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
