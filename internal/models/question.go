package models

import "strings"

// NoAnswer is recorded when the countdown expires before an option is confirmed.
const NoAnswer = "NONE"

// OptionKeys lists the multiple-choice keys in display order.
var OptionKeys = []string{"A", "B", "C", "D"}

// Question mirrors the backend question resource.
type Question struct {
	ID              int64  `json:"id"`
	LessonID        int64  `json:"lesson_id"`
	Content         string `json:"content"`
	OptionA         string `json:"option_a"`
	OptionB         string `json:"option_b"`
	OptionC         string `json:"option_c"`
	OptionD         string `json:"option_d"`
	CorrectAnswer   string `json:"correct_answer"`
	DifficultyLevel int    `json:"difficulty_level"`
}

// Option returns the text behind an option key.
func (q Question) Option(key string) string {
	switch strings.ToUpper(key) {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// IsCorrect compares an option key with the correct answer, ignoring case and padding.
func (q Question) IsCorrect(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

// NormalizeOption upper-cases a key and reports whether it is one of A-D.
func NormalizeOption(key string) (string, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, k := range OptionKeys {
		if k == key {
			return key, true
		}
	}
	return "", false
}

// CreateQuestionRequest is the AddQuestion form.
type CreateQuestionRequest struct {
	LessonID        int64  `json:"lesson_id"`
	Content         string `json:"content" validate:"required"`
	OptionA         string `json:"option_a" validate:"required,max=255"`
	OptionB         string `json:"option_b" validate:"required,max=255"`
	OptionC         string `json:"option_c" validate:"required,max=255"`
	OptionD         string `json:"option_d" validate:"required,max=255"`
	CorrectAnswer   string `json:"correct_answer" validate:"required,oneof=A B C D"`
	DifficultyLevel int    `json:"difficulty_level" validate:"required,min=1,max=5"`
}

// Normalize upper-cases the answer key and defaults the difficulty level.
func (r *CreateQuestionRequest) Normalize() {
	r.CorrectAnswer = strings.ToUpper(strings.TrimSpace(r.CorrectAnswer))
	if r.DifficultyLevel == 0 {
		r.DifficultyLevel = 1
	}
}
