package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating against the backend.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse mirrors the backend token payload.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// RegisterRequest is the account creation form.
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required,oneof=student teacher"`
}

// RegisteredUser is the subset of the backend user record echoed after registration.
type RegisteredUser struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// TokenClaims is the JWT payload issued by the backend.
type TokenClaims struct {
	Role   string `json:"role"`
	UserID int64  `json:"id"`
	jwt.RegisteredClaims
}

// Session is the decoded identity behind a stored token. It is recreated on every read.
type Session struct {
	Subject string   `json:"sub"`
	Role    UserRole `json:"role"`
	UserID  int64    `json:"id"`
}

// SessionFromClaims normalises decoded claims; nil when identity fields are missing.
func SessionFromClaims(c *TokenClaims) *Session {
	if c == nil {
		return nil
	}
	role := UserRole(strings.ToLower(strings.TrimSpace(c.Role)))
	if !role.Valid() || c.UserID <= 0 {
		return nil
	}
	return &Session{Subject: c.Subject, Role: role, UserID: c.UserID}
}
