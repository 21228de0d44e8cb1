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

type placementService interface {
	StartPlacement(ctx context.Context, current *models.Session) (quiz.PlacementSnapshot, error)
	Placement(id string, ownerID int64) (quiz.PlacementSnapshot, error)
	AnswerPlacement(id string, ownerID int64, answer string) (quiz.PlacementSnapshot, error)
}

type placementAnswerRequest struct {
	Answer string `json:"answer"`
}

// PlacementHandler runs the diagnostic placement test.
type PlacementHandler struct {
	service placementService
}

// NewPlacementHandler constructs the handler.
func NewPlacementHandler(svc placementService) *PlacementHandler {
	return &PlacementHandler{service: svc}
}

// Start godoc
// @Summary Start the placement test
// @Tags Placement
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /placement-test [post]
func (h *PlacementHandler) Start(c *gin.Context) {
	snap, err := h.service.StartPlacement(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snap)
}

// Get godoc
// @Summary Placement state
// @Tags Placement
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /placement-test/{id} [get]
func (h *PlacementHandler) Get(c *gin.Context) {
	snap, err := h.service.Placement(c.Param("id"), ownerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}

// Answer godoc
// @Summary Answer the current placement question
// @Description Free-text answer compared case-insensitively. The last answer completes the test.
// @Tags Placement
// @Accept json
// @Produce json
// @Param id path string true "Placement ID"
// @Param payload body placementAnswerRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /placement-test/{id}/answer [post]
func (h *PlacementHandler) Answer(c *gin.Context) {
	var req placementAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}
	snap, err := h.service.AnswerPlacement(c.Param("id"), ownerID(c), req.Answer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}
