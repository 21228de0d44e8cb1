package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type lessonBackend interface {
	ListLessons(ctx context.Context) ([]models.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	CreateLesson(ctx context.Context, role models.UserRole, req models.CreateLessonRequest) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, role models.UserRole, id int64) error
}

type attachmentUploader interface {
	Upload(ctx context.Context, file Attachment) (*models.UploadResult, error)
}

var lessonListKey = queryKey(http.MethodGet, "/lessons/")

func lessonKey(id int64) string {
	return queryKey(http.MethodGet, fmt.Sprintf("/lessons/%d", id))
}

// LessonService backs the lesson list, LessonView, AddLesson and lesson deletion.
type LessonService struct {
	backend   lessonBackend
	uploader  attachmentUploader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	deletes   singleflight.Group
}

// NewLessonService constructs a LessonService.
func NewLessonService(backend lessonBackend, uploader attachmentUploader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{backend: backend, uploader: uploader, cache: cache, validator: validate, logger: logger}
}

// List returns every lesson and whether the cache served it.
func (s *LessonService) List(ctx context.Context) ([]models.Lesson, bool, error) {
	lessons, hit, err := cachedRead(ctx, s.cache, lessonListKey, func(ctx context.Context) ([]models.Lesson, error) {
		lessons, err := s.backend.ListLessons(ctx)
		if lessons == nil && err == nil {
			lessons = []models.Lesson{}
		}
		return lessons, err
	})
	return lessons, hit, err
}

// View returns one lesson with its attachment classified for preview.
func (s *LessonService) View(ctx context.Context, id int64) (*dto.LessonViewResponse, bool, error) {
	if id <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid lesson id")
	}
	lesson, hit, err := cachedRead(ctx, s.cache, lessonKey(id), func(ctx context.Context) (*models.Lesson, error) {
		return s.backend.GetLesson(ctx, id)
	})
	if err != nil {
		return nil, false, err
	}
	return &dto.LessonViewResponse{
		Lesson:         *lesson,
		AttachmentKind: models.AttachmentKindOf(lesson.AttachmentURL),
		QuizPath:       fmt.Sprintf("/quiz/%d", lesson.ID),
	}, hit, nil
}

// Create validates the AddLesson form, uploads the optional attachment first and creates
// the lesson with the returned URL.
func (s *LessonService) Create(ctx context.Context, role models.UserRole, req models.CreateLessonRequest, attachment *Attachment) (*models.Lesson, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if attachment != nil {
		if s.uploader == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "uploads are not configured")
		}
		uploaded, err := s.uploader.Upload(ctx, *attachment)
		if err != nil {
			return nil, err
		}
		req.AttachmentURL = uploaded.URL
	}

	lesson, err := s.backend.CreateLesson(ctx, role, req)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, lessonListKey)
	s.logger.Info("lesson created", zap.Int64("lesson_id", lesson.ID), zap.String("title", lesson.Title))
	return lesson, nil
}

// Delete removes a lesson. Concurrent deletes of one id share a single backend request,
// which runs detached from any one caller's cancellation; the backend client timeout
// bounds it. The cached list is spliced instead of refetched.
func (s *LessonService) Delete(ctx context.Context, role models.UserRole, id int64) (*dto.LessonDeleteResponse, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid lesson id")
	}
	detached := context.WithoutCancel(ctx)
	ch := s.deletes.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		if err := s.backend.DeleteLesson(detached, role, id); err != nil {
			return nil, err
		}
		return s.spliceDeleted(detached, id), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, appErrors.WithCause(appErrors.ErrTimeout, ctx.Err(), "lesson delete abandoned")
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("lesson delete coalesced", zap.Int64("lesson_id", id))
	}
	return &dto.LessonDeleteResponse{DeletedID: id, Lessons: res.Val.([]models.Lesson)}, nil
}

// spliceDeleted drops id from the cached list. Without a cached list it loads the
// remaining lessons once so the caller always gets the list to render.
func (s *LessonService) spliceDeleted(ctx context.Context, id int64) []models.Lesson {
	_ = s.cache.Invalidate(ctx, lessonKey(id))
	_ = s.cache.Invalidate(ctx, questionListKey(id))

	var cached []models.Lesson
	hit, err := s.cache.Get(ctx, lessonListKey, &cached)
	if err != nil || !hit {
		lessons, _, err := s.List(ctx)
		if err != nil {
			s.logger.Warn("reload lessons after delete", zap.Int64("lesson_id", id), zap.Error(err))
			return []models.Lesson{}
		}
		return withoutLesson(lessons, id)
	}
	remaining := withoutLesson(cached, id)
	if err := s.cache.Set(ctx, lessonListKey, remaining, 0); err != nil {
		// A stale list must not survive a failed rewrite.
		_ = s.cache.Invalidate(ctx, lessonListKey)
	}
	return remaining
}

func withoutLesson(lessons []models.Lesson, id int64) []models.Lesson {
	remaining := make([]models.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.ID != id {
			remaining = append(remaining, lesson)
		}
	}
	return remaining
}
