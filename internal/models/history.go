package models

import "encoding/json"

// SubmitAnswerRequest is posted to /history/submit for every answered question.
type SubmitAnswerRequest struct {
	QuestionID       int64  `json:"question_id"`
	GivenAnswer      string `json:"given_answer"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// SubmissionRecord is the backend's echo of a stored answer; fields are optional.
type SubmissionRecord struct {
	ID        int64  `json:"id,omitempty"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Given     string `json:"given_answer,omitempty"`
}

// StudentStats covers both shapes the backend has returned for /history/stats.
type StudentStats struct {
	Accuracy         float64 `json:"accuracy"`
	TotalSolved      int     `json:"total_solved"`
	TotalTimeSeconds int     `json:"total_time_seconds"`
	TotalCorrect     int     `json:"total_correct,omitempty"`
	TotalQuestions   int     `json:"total_questions,omitempty"`
}

// Normalize fills total_solved from total_questions when only the latter is present.
func (s *StudentStats) Normalize() {
	if s.TotalSolved == 0 && s.TotalQuestions > 0 {
		s.TotalSolved = s.TotalQuestions
	}
}

// StudyMinutes renders study time the way the dashboard shows it.
func (s StudentStats) StudyMinutes() int {
	return s.TotalTimeSeconds / 60
}

// StudentSummary is the /history/summary payload.
type StudentSummary struct {
	LessonBreakdown map[string]float64 `json:"lesson_breakdown"`
	TotalStats      struct {
		AvgTime     float64 `json:"avg_time"`
		TotalSolved int     `json:"total_solved"`
	} `json:"total_stats"`
}

// Trend is the opaque /history/trend payload, rendered as-is.
type Trend = json.RawMessage

// StudentPerformance is one row of the teacher analytics student table.
type StudentPerformance struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Accuracy    float64 `json:"accuracy"`
	TotalXP     int     `json:"total_xp"`
	TotalSolved int     `json:"total_solved"`
}

// LessonPerformance is one row of the teacher analytics lesson table.
type LessonPerformance struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	PassRate       float64 `json:"passRate"`
	TotalQuestions int     `json:"total_questions"`
}

// TeacherAnalytics is the /history/teacher/analytics payload.
type TeacherAnalytics struct {
	Students      []StudentPerformance `json:"students"`
	Lessons       []LessonPerformance  `json:"lessons"`
	TotalStudents int                  `json:"total_students"`
}

// Recommendation is the backend next-step suggestion shown verbatim on the dashboard.
type Recommendation struct {
	RecommendedAction string `json:"recommended_action"`
	Reason            string `json:"reason"`
	AdaptiveTip       string `json:"adaptive_tip,omitempty"`
	TargetLessonID    *int64 `json:"target_lesson_id,omitempty"`
}
