package models

import "strings"

// Difficulty is the coarse lesson difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Lesson mirrors the backend lesson resource.
type Lesson struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ContentText   string     `json:"content_text"`
	AttachmentURL string     `json:"attachment_url"`
	Difficulty    Difficulty `json:"difficulty"`
}

// CreateLessonRequest is the AddLesson form.
type CreateLessonRequest struct {
	Title         string     `json:"title" form:"title" validate:"required,max=100"`
	Description   string     `json:"description" form:"description"`
	ContentText   string     `json:"content_text" form:"content_text"`
	AttachmentURL string     `json:"attachment_url" form:"attachment_url" validate:"omitempty,url,max=255"`
	Difficulty    Difficulty `json:"difficulty" form:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// Normalize applies form defaults.
func (r *CreateLessonRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Difficulty = Difficulty(strings.ToLower(strings.TrimSpace(string(r.Difficulty))))
	if r.Difficulty == "" {
		r.Difficulty = DifficultyMedium
	}
}

// AttachmentKind classifies how LessonView previews an attachment.
type AttachmentKind string

const (
	AttachmentNone  AttachmentKind = "none"
	AttachmentImage AttachmentKind = "image"
	AttachmentPDF   AttachmentKind = "pdf"
	AttachmentOther AttachmentKind = "other"
)

// AttachmentKindOf inspects the attachment URL extension.
func AttachmentKindOf(url string) AttachmentKind {
	if url == "" {
		return AttachmentNone
	}
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range []string{".jpeg", ".jpg", ".gif", ".png"} {
		if strings.HasSuffix(lower, ext) {
			return AttachmentImage
		}
	}
	if strings.HasSuffix(lower, ".pdf") {
		return AttachmentPDF
	}
	return AttachmentOther
}

// UploadResult is returned by POST /upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
