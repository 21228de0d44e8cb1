package dto

import (
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

// Widget names reported in dashboard warnings.
const (
	WidgetStatus         = "status"
	WidgetStats          = "stats"
	WidgetRecommendation = "recommendation"
	WidgetLessons        = "lessons"
	WidgetSummary        = "summary"
	WidgetTrend          = "trend"
	WidgetAnalytics      = "analytics"
)

// WidgetWarning records a widget that fell back to its default.
type WidgetWarning struct {
	Widget  string `json:"widget"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatsCard is the three-number header of the student dashboard.
type StatsCard struct {
	Accuracy         float64 `json:"accuracy"`
	TotalSolved      int     `json:"total_solved"`
	TotalTimeSeconds int     `json:"total_time_seconds"`
	StudyMinutes     int     `json:"study_minutes"`
}

// StudentDashboardResponse is the student landing page. Redirect is set, and nothing else,
// when the student still has to take the placement test.
type StudentDashboardResponse struct {
	Redirect       string                 `json:"redirect,omitempty"`
	Greeting       string                 `json:"greeting,omitempty"`
	Level          int                    `json:"level,omitempty"`
	Stats          StatsCard              `json:"stats"`
	Recommendation *models.Recommendation `json:"recommendation,omitempty"`
	Lessons        []models.Lesson        `json:"lessons"`
	Summary        *models.StudentSummary `json:"summary,omitempty"`
	Trend          models.Trend           `json:"trend,omitempty"`
	Warnings       []WidgetWarning        `json:"warnings,omitempty"`
}

// TeacherLessonRow is one row of the curriculum table.
type TeacherLessonRow struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Difficulty      string `json:"difficulty"`
	AddQuestionPath string `json:"add_question_path"`
	QuestionsPath   string `json:"questions_path"`
}

// TeacherDashboardResponse is the teacher landing page.
type TeacherDashboardResponse struct {
	Greeting  string                   `json:"greeting,omitempty"`
	Lessons   []TeacherLessonRow       `json:"lessons"`
	Analytics *models.TeacherAnalytics `json:"analytics,omitempty"`
	Warnings  []WidgetWarning          `json:"warnings,omitempty"`
}
