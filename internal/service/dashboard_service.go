package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type studentProgressSource interface {
	UserStatus(ctx context.Context, userID int64) (*models.UserStatus, error)
	Stats(ctx context.Context, userID int64) (*models.StudentStats, error)
	NextStep(ctx context.Context, userID int64) (*models.Recommendation, error)
	Summary(ctx context.Context, userID int64) (*models.StudentSummary, error)
	Trend(ctx context.Context, userID int64) (models.Trend, error)
}

type classAnalyticsSource interface {
	TeacherAnalytics(ctx context.Context) (*models.TeacherAnalytics, error)
}

type lessonLister interface {
	List(ctx context.Context) ([]models.Lesson, bool, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Progress  studentProgressSource
	Analytics classAnalyticsSource
	Lessons   lessonLister
	Cache     *CacheService
	Logger    *zap.Logger
}

// DashboardService composes the student and teacher landing pages. Widgets are fetched
// concurrently and fail independently.
type DashboardService struct {
	progress  studentProgressSource
	analytics classAnalyticsSource
	lessons   lessonLister
	cache     *CacheService
	logger    *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		progress:  params.Progress,
		analytics: params.Analytics,
		lessons:   params.Lessons,
		cache:     params.Cache,
		logger:    logger,
	}
}

type warningSink struct {
	mu       sync.Mutex
	warnings []dto.WidgetWarning
}

func (w *warningSink) add(widget string, err error) {
	appErr := appErrors.FromError(err)
	w.mu.Lock()
	w.warnings = append(w.warnings, dto.WidgetWarning{Widget: widget, Kind: string(appErrors.KindOf(err)), Message: appErr.Message})
	w.mu.Unlock()
}

// Student renders the student dashboard. A student who has not completed placement gets
// only a redirect to the placement test.
func (s *DashboardService) Student(ctx context.Context, current *models.Session) (*dto.StudentDashboardResponse, error) {
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	uid := current.UserID
	sink := &warningSink{}
	resp := &dto.StudentDashboardResponse{Greeting: current.Subject, Lessons: []models.Lesson{}}

	status, err := s.progress.UserStatus(ctx, uid)
	switch {
	case err != nil:
		s.logger.Warn("user status unavailable", zap.Int64("user_id", uid), zap.Error(err))
		sink.add(dto.WidgetStatus, err)
	case current.Role == models.RoleStudent && !status.IsPlacementCompleted:
		return &dto.StudentDashboardResponse{Redirect: guard.PathPlacementTest}, nil
	default:
		resp.Level = status.CurrentLevel
	}

	var g errgroup.Group
	g.Go(func() error {
		stats, _, err := cachedRead(ctx, s.cache, s.userKey(uid, "/history/stats/%d"), func(ctx context.Context) (*models.StudentStats, error) {
			return s.progress.Stats(ctx, uid)
		})
		if err != nil {
			sink.add(dto.WidgetStats, err)
			return nil
		}
		resp.Stats = dto.StatsCard{
			Accuracy:         stats.Accuracy,
			TotalSolved:      stats.TotalSolved,
			TotalTimeSeconds: stats.TotalTimeSeconds,
			StudyMinutes:     stats.StudyMinutes(),
		}
		return nil
	})
	g.Go(func() error {
		rec, _, err := cachedRead(ctx, s.cache, s.userKey(uid, "/recommendation/next-step/%d"), func(ctx context.Context) (*models.Recommendation, error) {
			return s.progress.NextStep(ctx, uid)
		})
		if err != nil {
			sink.add(dto.WidgetRecommendation, err)
			return nil
		}
		resp.Recommendation = rec
		return nil
	})
	g.Go(func() error {
		lessons, _, err := s.lessons.List(ctx)
		if err != nil {
			sink.add(dto.WidgetLessons, err)
			return nil
		}
		resp.Lessons = lessons
		return nil
	})
	g.Go(func() error {
		summary, _, err := cachedRead(ctx, s.cache, s.userKey(uid, "/history/summary/%d"), func(ctx context.Context) (*models.StudentSummary, error) {
			return s.progress.Summary(ctx, uid)
		})
		if err != nil {
			sink.add(dto.WidgetSummary, err)
			return nil
		}
		resp.Summary = summary
		return nil
	})
	g.Go(func() error {
		trend, _, err := cachedRead(ctx, s.cache, s.userKey(uid, "/history/trend/%d"), func(ctx context.Context) (models.Trend, error) {
			return s.progress.Trend(ctx, uid)
		})
		if err != nil {
			sink.add(dto.WidgetTrend, err)
			return nil
		}
		resp.Trend = trend
		return nil
	})
	_ = g.Wait()

	resp.Warnings = sink.warnings
	return resp, nil
}

// Teacher renders the curriculum table and class analytics.
func (s *DashboardService) Teacher(ctx context.Context, current *models.Session) (*dto.TeacherDashboardResponse, error) {
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	sink := &warningSink{}
	resp := &dto.TeacherDashboardResponse{Greeting: current.Subject, Lessons: []dto.TeacherLessonRow{}}

	var g errgroup.Group
	g.Go(func() error {
		lessons, _, err := s.lessons.List(ctx)
		if err != nil {
			sink.add(dto.WidgetLessons, err)
			return nil
		}
		rows := make([]dto.TeacherLessonRow, 0, len(lessons))
		for _, l := range lessons {
			rows = append(rows, dto.TeacherLessonRow{
				ID:              l.ID,
				Title:           l.Title,
				Difficulty:      string(l.Difficulty),
				AddQuestionPath: fmt.Sprintf("/teacher/lessons/%d/questions/new", l.ID),
				QuestionsPath:   fmt.Sprintf("/teacher/lessons/%d/questions", l.ID),
			})
		}
		resp.Lessons = rows
		return nil
	})
	g.Go(func() error {
		if s.analytics == nil {
			return nil
		}
		analytics, _, err := cachedRead(ctx, s.cache, queryKey(http.MethodGet, "/history/teacher/analytics"), s.analytics.TeacherAnalytics)
		if err != nil {
			sink.add(dto.WidgetAnalytics, err)
			return nil
		}
		resp.Analytics = analytics
		return nil
	})
	_ = g.Wait()

	resp.Warnings = sink.warnings
	return resp, nil
}

func (s *DashboardService) userKey(uid int64, pathFormat string) string {
	return userQueryKey(uid, http.MethodGet, fmt.Sprintf(pathFormat, uid))
}
