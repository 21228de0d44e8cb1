package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type progressStub struct {
	mu        sync.Mutex
	status    *models.UserStatus
	statusErr error
	statsErr  error
	trendErr  error
	calls     map[string]int
}

func (p *progressStub) hit(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[name]++
}

func (p *progressStub) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *progressStub) UserStatus(context.Context, int64) (*models.UserStatus, error) {
	p.hit("status")
	return p.status, p.statusErr
}

func (p *progressStub) Stats(context.Context, int64) (*models.StudentStats, error) {
	p.hit("stats")
	if p.statsErr != nil {
		return nil, p.statsErr
	}
	return &models.StudentStats{Accuracy: 80, TotalSolved: 12, TotalTimeSeconds: 600}, nil
}

func (p *progressStub) NextStep(context.Context, int64) (*models.Recommendation, error) {
	p.hit("next")
	return &models.Recommendation{RecommendedAction: "Review Fractions", Reason: "Accuracy below 60%"}, nil
}

func (p *progressStub) Summary(context.Context, int64) (*models.StudentSummary, error) {
	p.hit("summary")
	return &models.StudentSummary{LessonBreakdown: map[string]float64{"Fractions": 50}}, nil
}

func (p *progressStub) Trend(context.Context, int64) (models.Trend, error) {
	p.hit("trend")
	if p.trendErr != nil {
		return nil, p.trendErr
	}
	return models.Trend(`[{"date":"2026-10-01","accuracy":70}]`), nil
}

type lessonListerStub struct {
	lessons []models.Lesson
	err     error
}

func (l lessonListerStub) List(context.Context) ([]models.Lesson, bool, error) {
	return l.lessons, false, l.err
}

var studentSession = &models.Session{Subject: "ana@example.com", Role: models.RoleStudent, UserID: 12}

func TestDashboardStudentComposesWidgets(t *testing.T) {
	cache, _ := newMemoryCache(t)
	progress := &progressStub{status: &models.UserStatus{IsPlacementCompleted: true, CurrentLevel: 2, Role: models.RoleStudent}}
	svc := NewDashboardService(DashboardServiceParams{
		Progress: progress,
		Lessons:  lessonListerStub{lessons: threeLessons()},
		Cache:    cache,
	})

	resp, err := svc.Student(context.Background(), studentSession)
	require.NoError(t, err)
	assert.Empty(t, resp.Redirect)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, 2, resp.Level)
	assert.Equal(t, dto.StatsCard{Accuracy: 80, TotalSolved: 12, TotalTimeSeconds: 600, StudyMinutes: 10}, resp.Stats)
	assert.Equal(t, "Review Fractions", resp.Recommendation.RecommendedAction)
	assert.Len(t, resp.Lessons, 3)
	assert.JSONEq(t, `[{"date":"2026-10-01","accuracy":70}]`, string(resp.Trend))

	_, err = svc.Student(context.Background(), studentSession)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.count("stats"), "per-user widgets are cached")
	assert.Equal(t, 2, progress.count("status"), "placement status is always fresh")
}

func TestDashboardStudentRedirectsToPlacement(t *testing.T) {
	progress := &progressStub{status: &models.UserStatus{IsPlacementCompleted: false, Role: models.RoleStudent}}
	svc := NewDashboardService(DashboardServiceParams{Progress: progress, Lessons: lessonListerStub{}})

	resp, err := svc.Student(context.Background(), studentSession)
	require.NoError(t, err)
	assert.Equal(t, guard.PathPlacementTest, resp.Redirect)
	assert.Zero(t, progress.count("stats"), "no widgets load before placement")
}

func TestDashboardStudentDegradesFailedWidgets(t *testing.T) {
	progress := &progressStub{
		status:   &models.UserStatus{IsPlacementCompleted: true},
		statsErr: appErrors.Clone(appErrors.ErrNetwork, "learning service unreachable"),
		trendErr: appErrors.Clone(appErrors.ErrUpstream, "boom"),
	}
	svc := NewDashboardService(DashboardServiceParams{Progress: progress, Lessons: lessonListerStub{lessons: threeLessons()}})

	resp, err := svc.Student(context.Background(), studentSession)
	require.NoError(t, err)
	assert.Equal(t, dto.StatsCard{}, resp.Stats)
	assert.Nil(t, resp.Trend)
	assert.NotNil(t, resp.Recommendation)
	assert.Len(t, resp.Lessons, 3)

	kinds := map[string]string{}
	for _, w := range resp.Warnings {
		kinds[w.Widget] = w.Kind
	}
	assert.Equal(t, map[string]string{dto.WidgetStats: "network", dto.WidgetTrend: "upstream"}, kinds)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"stats":{"accuracy":0,"total_solved":0,"total_time_seconds":0`)
}

func TestDashboardStudentSurvivesStatusFailure(t *testing.T) {
	progress := &progressStub{statusErr: appErrors.Clone(appErrors.ErrNetwork, "down")}
	svc := NewDashboardService(DashboardServiceParams{Progress: progress, Lessons: lessonListerStub{}})

	resp, err := svc.Student(context.Background(), studentSession)
	require.NoError(t, err)
	assert.Empty(t, resp.Redirect)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, dto.WidgetStatus, resp.Warnings[0].Widget)
	assert.NotNil(t, resp.Lessons)
}

func TestDashboardTeacher(t *testing.T) {
	analytics := &analyticsStub{analytics: sampleAnalytics()}
	svc := NewDashboardService(DashboardServiceParams{Analytics: analytics, Lessons: lessonListerStub{lessons: threeLessons()}})
	teacher := &models.Session{Subject: "guru@example.com", Role: models.RoleTeacher, UserID: 3}

	resp, err := svc.Teacher(context.Background(), teacher)
	require.NoError(t, err)
	require.Len(t, resp.Lessons, 3)
	assert.Equal(t, "/teacher/lessons/1/questions/new", resp.Lessons[0].AddQuestionPath)
	assert.Equal(t, 2, resp.Analytics.TotalStudents)
	assert.Empty(t, resp.Warnings)

	failing := NewDashboardService(DashboardServiceParams{
		Analytics: &analyticsStub{err: appErrors.Clone(appErrors.ErrForbidden, "no")},
		Lessons:   lessonListerStub{err: appErrors.Clone(appErrors.ErrNetwork, "down")},
	})
	resp, err = failing.Teacher(context.Background(), teacher)
	require.NoError(t, err)
	assert.Empty(t, resp.Lessons)
	assert.Nil(t, resp.Analytics)
	assert.Len(t, resp.Warnings, 2)
}

func TestDashboardRequiresSession(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{})
	_, err := svc.Student(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, err = svc.Teacher(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
