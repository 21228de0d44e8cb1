package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/middleware"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

type authService interface {
	Login(ctx context.Context, key string, req models.LoginRequest) (*service.LoginResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, string, error)
	Logout(ctx context.Context, key string) error
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandler wires the Login, Register and Logout pages to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "portal_session"
	}
	return &AuthHandler{service: svc, cookie: cookie}
}

// Login godoc
// @Summary Sign in
// @Description Exchange credentials for a backend token, store it and return the landing page
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	// A login always gets a fresh session id; whatever cookie the caller brought is ended.
	if previous := middleware.SessionID(c); previous != "" {
		if err := h.service.Logout(c.Request.Context(), previous); err != nil {
			response.Error(c, err)
			return
		}
	}
	sid := uuid.NewString()
	res, err := h.service.Login(c.Request.Context(), sid, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, sid, int(h.cookie.TTL.Seconds()))
	response.JSON(c, http.StatusOK, dto.SessionResponse{Token: res.Token, Session: res.Session, Redirect: res.Redirect},
		map[string]interface{}{response.MetaRedirect: res.Redirect})
}

// Register godoc
// @Summary Create an account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	user, next, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user, map[string]interface{}{response.MetaRedirect: next})
}

// Logout godoc
// @Summary Sign out
// @Description Clear the stored token and cancel running attempts
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if sid := middleware.SessionID(c); sid != "" {
		if err := h.service.Logout(c.Request.Context(), sid); err != nil {
			response.Error(c, err)
			return
		}
	}
	h.setCookie(c, "", -1)
	response.JSON(c, http.StatusOK, gin.H{"logged_out": true}, map[string]interface{}{response.MetaRedirect: guard.PathLogin})
}

// Session godoc
// @Summary Current session
// @Description Decoded claims of the stored token; null when signed out
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	current := sessionFromContext(c)
	redirect := guard.PathLogin
	if current != nil {
		redirect = guard.Home(current.Role)
	}
	response.JSON(c, http.StatusOK, dto.SessionResponse{Session: current, Redirect: redirect})
}

// Nav godoc
// @Summary Navigation bar
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /nav [get]
func (h *AuthHandler) Nav(c *gin.Context) {
	response.JSON(c, http.StatusOK, guard.Nav(sessionFromContext(c)))
}

// Root sends visitors to the login page.
func (h *AuthHandler) Root(c *gin.Context) {
	middleware.Navigate(c, appErrors.Clone(appErrors.ErrUnauthorized, "please sign in"), guard.PathLogin)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
