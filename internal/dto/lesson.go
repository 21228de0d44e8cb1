package dto

import "github.com/noah-isme/adaptive-learning-portal/internal/models"

// LessonViewResponse is the LessonView page.
type LessonViewResponse struct {
	Lesson         models.Lesson         `json:"lesson"`
	AttachmentKind models.AttachmentKind `json:"attachment_kind"`
	QuizPath       string                `json:"quiz_path"`
}

// LessonDeleteResponse reports a deletion together with the lesson list to render next.
// Lessons is empty only when the list could not be loaded after the delete.
type LessonDeleteResponse struct {
	DeletedID int64           `json:"deleted_id"`
	Lessons   []models.Lesson `json:"lessons"`
}

// QuestionDeleteResponse carries the refetched question list after a delete.
type QuestionDeleteResponse struct {
	DeletedID int64             `json:"deleted_id"`
	Questions []models.Question `json:"questions"`
}

// SessionResponse is returned by login and the session probe.
type SessionResponse struct {
	Token    string          `json:"access_token,omitempty"`
	Session  *models.Session `json:"session"`
	Redirect string          `json:"redirect"`
}

// ExportResponse points at a rendered analytics export.
type ExportResponse struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	ExpiresAt string `json:"expires_at"`
}
