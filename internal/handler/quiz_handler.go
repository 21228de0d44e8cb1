package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

type quizService interface {
	Start(ctx context.Context, current *models.Session, lessonID int64) (quiz.Snapshot, error)
	Attempt(id string, ownerID int64) (*quiz.Attempt, error)
	Get(id string, ownerID int64) (quiz.Snapshot, error)
	Select(id string, ownerID int64, option string) (quiz.Snapshot, error)
	Confirm(id string, ownerID int64) (quiz.Snapshot, error)
	Acknowledge(id string, ownerID int64) (quiz.Snapshot, error)
	Cancel(id string, ownerID int64) error
}

type selectOptionRequest struct {
	Option string `json:"option" binding:"required"`
}

// QuizHandler drives timed lesson quizzes.
type QuizHandler struct {
	service quizService
}

// NewQuizHandler constructs the handler.
func NewQuizHandler(svc quizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// Start godoc
// @Summary Start a lesson quiz
// @Description Loads the lesson's questions and begins a timed attempt
// @Tags Quiz
// @Produce json
// @Param lessonId path int true "Lesson ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quiz/{lessonId} [post]
func (h *QuizHandler) Start(c *gin.Context) {
	lessonID, err := int64Param(c, "lessonId")
	if err != nil {
		response.Error(c, err)
		return
	}
	snap, err := h.service.Start(c.Request.Context(), sessionFromContext(c), lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snap)
}

// Get godoc
// @Summary Attempt state
// @Tags Quiz
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quiz/attempts/{id} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	snap, err := h.service.Get(c.Param("id"), ownerID(c))
	h.respond(c, snap, err)
}

// Select godoc
// @Summary Select an option
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body selectOptionRequest true "Option A-D"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quiz/attempts/{id}/select [post]
func (h *QuizHandler) Select(c *gin.Context) {
	var req selectOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid option payload"))
		return
	}
	snap, err := h.service.Select(c.Param("id"), ownerID(c), req.Option)
	h.respond(c, snap, err)
}

// Confirm godoc
// @Summary Confirm the selected option
// @Tags Quiz
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quiz/attempts/{id}/confirm [post]
func (h *QuizHandler) Confirm(c *gin.Context) {
	snap, err := h.service.Confirm(c.Param("id"), ownerID(c))
	h.respond(c, snap, err)
}

// Acknowledge godoc
// @Summary Dismiss the hint
// @Tags Quiz
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Router /quiz/attempts/{id}/acknowledge [post]
func (h *QuizHandler) Acknowledge(c *gin.Context) {
	snap, err := h.service.Acknowledge(c.Param("id"), ownerID(c))
	h.respond(c, snap, err)
}

// Cancel godoc
// @Summary Abandon an attempt
// @Tags Quiz
// @Param id path string true "Attempt ID"
// @Success 204
// @Router /quiz/attempts/{id} [delete]
func (h *QuizHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Param("id"), ownerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *QuizHandler) respond(c *gin.Context, snap quiz.Snapshot, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}

func ownerID(c *gin.Context) int64 {
	if current := sessionFromContext(c); current != nil {
		return current.UserID
	}
	return 0
}
