package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/middleware"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
)

type loginBackendStub struct {
	token string
}

func (b *loginBackendStub) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: b.token, TokenType: "bearer"}, nil
}

func (b *loginBackendStub) Register(_ context.Context, req models.RegisterRequest) (*models.RegisteredUser, error) {
	return &models.RegisteredUser{ID: 1, Username: req.Username, Email: req.Email}, nil
}

func studentToken(t *testing.T) string {
	t.Helper()
	claims := models.TokenClaims{
		Role:   "student",
		UserID: 12,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func newSessionRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	manager := session.NewManager(session.NewMemoryStore(), session.NewParser(""), time.Hour, nil)
	auth := NewAuthHandler(service.NewAuthService(&loginBackendStub{token: studentToken(t)}, manager, nil, nil),
		CookieConfig{Name: "sid", TTL: time.Hour})

	r := gin.New()
	r.Use(middleware.WithResponseMeta(), middleware.Session(manager, "sid"))
	r.POST("/auth/login", auth.Login)
	r.POST("/auth/logout", auth.Logout)
	r.GET("/dashboard", middleware.RequireSession(models.RoleStudent), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
	})
	return r, manager
}

func serve(r *gin.Engine, method, path, cookie, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "sid" {
			return cookie.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func redirectOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	redirect, _ := env.Meta["redirect"].(string)
	return redirect
}

const loginBody = `{"email":"student@example.com","password":"secret"}`

func TestLoginIssuesFreshSessionID(t *testing.T) {
	r, _ := newSessionRouter(t)

	w := serve(r, http.MethodPost, "/auth/login", "planted-before-login", loginBody)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := sessionCookie(t, w)
	assert.NotEqual(t, "planted-before-login", fresh)

	w = serve(r, http.MethodGet, "/dashboard", "planted-before-login", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the pre-login cookie must not carry the new token")

	w = serve(r, http.MethodGet, "/dashboard", fresh, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutThenProtectedNavigationRedirectsToLogin(t *testing.T) {
	r, manager := newSessionRouter(t)

	w := serve(r, http.MethodPost, "/auth/login", "", loginBody)
	require.Equal(t, http.StatusOK, w.Code)
	sid := sessionCookie(t, w)
	require.NotEmpty(t, manager.Token(context.Background(), sid))

	w = serve(r, http.MethodGet, "/dashboard", sid, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/auth/logout", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, manager.Token(context.Background(), sid))

	w = serve(r, http.MethodGet, "/dashboard", sid, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", redirectOf(t, w))
}

func TestAuthHandlerLoginEndsPreviousSession(t *testing.T) {
	svc := &authServiceMock{loginResp: &service.LoginResult{
		Token:    "tok",
		Session:  &models.Session{Role: models.RoleStudent, UserID: 12},
		Redirect: "/dashboard",
	}}
	h := NewAuthHandler(svc, CookieConfig{Name: "sid", TTL: time.Hour})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(loginBody))
	c.Set(middleware.ContextSessionIDKey, "old-sid")
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"old-sid"}, svc.logoutKeys)
	assert.NotEqual(t, "old-sid", svc.loginKey)
	assert.Equal(t, svc.loginKey, sessionCookie(t, w))
}
