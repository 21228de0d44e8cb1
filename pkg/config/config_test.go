package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, "portal_session", cfg.Session.CookieName)
	assert.Equal(t, 30*time.Second, cfg.Quiz.QuestionTimeLimit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Quiz.FeedbackDelay)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"http://127.0.0.1:5173", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BACKEND_BASE_URL", "https://learn.example.com/")
	v.Set("QUIZ_QUESTION_TIME_LIMIT", "45s")
	v.Set("QUIZ_FEEDBACK_DELAY", "not-a-duration")
	v.Set("SESSION_STORE", "REDIS")

	cfg := fromViper(v)

	assert.Equal(t, "https://learn.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Quiz.QuestionTimeLimit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Quiz.FeedbackDelay, "invalid durations fall back")
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
