package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/middleware"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, current *models.Session) (*dto.StudentDashboardResponse, error)
	Teacher(ctx context.Context, current *models.Session) (*dto.TeacherDashboardResponse, error)
}

// DashboardHandler serves the role landing pages.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Student godoc
// @Summary Student dashboard
// @Description Stats, recommendation, lessons, summary and trend. Widgets that fail are reported in warnings.
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	resp, err := h.service.Student(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp.Redirect != "" {
		middleware.SetGuardOutcome(c, guard.RedirectPlacement)
		middleware.Navigate(c, appErrors.Clone(appErrors.ErrForbidden, "placement test required"), resp.Redirect)
		return
	}
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}

// Teacher godoc
// @Summary Teacher dashboard
// @Description Lessons with question management links plus class analytics
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher-dashboard [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	resp, err := h.service.Teacher(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}
