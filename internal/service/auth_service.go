package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type authBackend interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, error)
}

type sessionContext interface {
	Current(ctx context.Context, key string) *models.Session
	Establish(ctx context.Context, key, token string) (*models.Session, error)
	Invalidate(ctx context.Context, key string) error
}

type ownerCanceller interface {
	CancelOwner(ownerID int64) int
}

// LoginResult is the stored token together with where the user lands next.
type LoginResult struct {
	Token    string
	Session  *models.Session
	Redirect string
}

// AuthService drives the Login, Register and Logout pages.
type AuthService struct {
	backend   authBackend
	sessions  sessionContext
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(backend authBackend, sessions sessionContext, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{backend: backend, sessions: sessions, validator: validate, logger: logger}
}

// Login exchanges credentials for a token and stores it under key.
func (s *AuthService) Login(ctx context.Context, key string, req models.LoginRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	resp, err := s.backend.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.AccessToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "login response carried no token")
	}

	current, err := s.sessions.Establish(ctx, key, resp.AccessToken)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", current.UserID), zap.String("role", string(current.Role)))

	return &LoginResult{Token: resp.AccessToken, Session: current, Redirect: guard.Home(current.Role)}, nil
}

// Register creates an account; the next page is always the login form.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = models.UserRole(strings.ToLower(string(req.Role)))
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	user, err := s.backend.Register(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return user, guard.PathLogin, nil
}

// Logout clears the stored token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, key string) error {
	return s.sessions.Invalidate(ctx, key)
}

// Current returns the decoded session for key, nil when signed out.
func (s *AuthService) Current(ctx context.Context, key string) *models.Session {
	return s.sessions.Current(ctx, key)
}

// LogoutCleanup drops what a signed-out user left behind: running attempts and cached
// per-user queries.
func LogoutCleanup(runs ownerCanceller, cache *CacheService, logger *zap.Logger) session.InvalidateFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, _ string, ended *models.Session) {
		if ended == nil {
			return
		}
		cancelled := 0
		if runs != nil {
			cancelled = runs.CancelOwner(ended.UserID)
		}
		if err := cache.Invalidate(ctx, userQueryPattern(ended.UserID)); err != nil {
			logger.Warn("drop user cache on logout", zap.Int64("user_id", ended.UserID), zap.Error(err))
		}
		logger.Info("user logged out", zap.Int64("user_id", ended.UserID), zap.Int("cancelled_attempts", cancelled))
	}
}
