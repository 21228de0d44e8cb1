package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

const attachmentField = "attachment"

type lessonService interface {
	List(ctx context.Context) ([]models.Lesson, bool, error)
	View(ctx context.Context, id int64) (*dto.LessonViewResponse, bool, error)
	Create(ctx context.Context, role models.UserRole, req models.CreateLessonRequest, attachment *service.Attachment) (*models.Lesson, error)
	Delete(ctx context.Context, role models.UserRole, id int64) (*dto.LessonDeleteResponse, error)
}

// LessonHandler exposes the lesson pages.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc lessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// List godoc
// @Summary List lessons
// @Tags Lessons
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	lessons, hit, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, metaWithCache(c, hit))
}

// View godoc
// @Summary Lesson detail
// @Description Lesson content plus the kind of attachment to render
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) View(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, hit, err := h.service.View(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, metaWithCache(c, hit))
}

// Create godoc
// @Summary Add lesson
// @Description Accepts JSON or multipart form data. A multipart "attachment" file is uploaded before the lesson is created.
// @Tags Lessons
// @Accept json,mpfd
// @Produce json
// @Param payload body models.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req models.CreateLessonRequest
	var attachment *service.Attachment

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
			return
		}
		header, err := c.FormFile(attachmentField)
		if err != nil && err != http.ErrMissingFile {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attachment"))
			return
		}
		if header != nil {
			file, err := header.Open()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attachment"))
				return
			}
			defer file.Close()
			attachment = attachmentFrom(header, file)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	lesson, err := h.service.Create(c.Request.Context(), sessionFromContext(c).Role, req, attachment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Delete godoc
// @Summary Delete lesson
// @Description Removes the lesson and returns the remaining list
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.Delete(c.Request.Context(), sessionFromContext(c).Role, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

func attachmentFrom(header *multipart.FileHeader, file multipart.File) *service.Attachment {
	return &service.Attachment{Filename: header.Filename, Size: header.Size, Content: file}
}
