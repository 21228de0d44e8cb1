package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

type questionService interface {
	List(ctx context.Context, lessonID int64) ([]models.Question, bool, error)
	Create(ctx context.Context, role models.UserRole, lessonID int64, req models.CreateQuestionRequest) (*models.Question, error)
	Generate(ctx context.Context, lessonID int64) (json.RawMessage, error)
	Delete(ctx context.Context, role models.UserRole, lessonID, questionID int64) (*dto.QuestionDeleteResponse, error)
}

// QuestionHandler manages a lesson's question bank.
type QuestionHandler struct {
	service questionService
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(svc questionService) *QuestionHandler {
	return &QuestionHandler{service: svc}
}

// List godoc
// @Summary List lesson questions
// @Tags Questions
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/lessons/{id}/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	lessonID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	questions, hit, err := h.service.List(c.Request.Context(), lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, metaWithCache(c, hit))
}

// Create godoc
// @Summary Add question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param payload body models.CreateQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/lessons/{id}/questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	lessonID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}
	question, err := h.service.Create(c.Request.Context(), sessionFromContext(c).Role, lessonID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// Generate godoc
// @Summary Generate questions
// @Description Asks the backend to generate questions for the lesson and relays its answer
// @Tags Questions
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/lessons/{id}/questions/generate [post]
func (h *QuestionHandler) Generate(c *gin.Context) {
	lessonID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Generate(c.Request.Context(), lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete question
// @Description Removes the question and returns the refreshed list
// @Tags Questions
// @Produce json
// @Param id path int true "Lesson ID"
// @Param questionId path int true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/lessons/{id}/questions/{questionId} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	lessonID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	questionID, err := int64Param(c, "questionId")
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.Delete(c.Request.Context(), sessionFromContext(c).Role, lessonID, questionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
