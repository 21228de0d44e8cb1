package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store drivers.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env  string
	Port int

	Backend BackendConfig
	Redis   RedisConfig
	Session SessionConfig
	Cache   QueryCacheConfig
	Quiz    QuizConfig
	Exports ExportsConfig
	Upload  UploadConfig
	CORS    CORSConfig
	Log     LogConfig
	CLI     CLIConfig
}

// BackendConfig points the portal at the learning backend REST API.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls where session tokens are kept and how they are decoded.
type SessionConfig struct {
	Store        string
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
	JWTSecret    string
}

// QueryCacheConfig governs the cached data-access layer.
type QueryCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// QuizConfig tunes attempt timers.
type QuizConfig struct {
	QuestionTimeLimit time.Duration
	FeedbackDelay     time.Duration
	SubmitTimeout     time.Duration
	AttemptTTL        time.Duration
}

// ExportsConfig controls analytics export storage & signed download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// UploadConfig bounds lesson attachment uploads.
type UploadConfig struct {
	MaxBytes int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// CLIConfig configures the learnctl terminal client.
type CLIConfig struct {
	TokenFile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Backend = BackendConfig{
		BaseURL:   strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:   parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		RateLimit: v.GetFloat64("BACKEND_RATE_LIMIT"),
		RateBurst: v.GetInt("BACKEND_RATE_BURST"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Store:        strings.ToLower(v.GetString("SESSION_STORE")),
		CookieName:   v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		TTL:          parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		JWTSecret:    v.GetString("JWT_SECRET"),
	}

	cfg.Cache = QueryCacheConfig{
		Enabled: v.GetBool("ENABLE_QUERY_CACHE"),
		TTL:     parseDuration(v.GetString("QUERY_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Quiz = QuizConfig{
		QuestionTimeLimit: parseDuration(v.GetString("QUIZ_QUESTION_TIME_LIMIT"), 30*time.Second),
		FeedbackDelay:     parseDuration(v.GetString("QUIZ_FEEDBACK_DELAY"), 1500*time.Millisecond),
		SubmitTimeout:     parseDuration(v.GetString("QUIZ_SUBMIT_TIMEOUT"), 5*time.Second),
		AttemptTTL:        parseDuration(v.GetString("QUIZ_ATTEMPT_TTL"), time.Hour),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{MaxBytes: maxUpload}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
	}

	cfg.CLI = CLIConfig{TokenFile: v.GetString("CLI_TOKEN_FILE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("BACKEND_BASE_URL", "http://127.0.0.1:8000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_RATE_LIMIT", 0)
	v.SetDefault("BACKEND_RATE_BURST", 10)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_COOKIE_NAME", "portal_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("ENABLE_QUERY_CACHE", true)
	v.SetDefault("QUERY_CACHE_TTL", "2m")

	v.SetDefault("QUIZ_QUESTION_TIME_LIMIT", "30s")
	v.SetDefault("QUIZ_FEEDBACK_DELAY", "1500ms")
	v.SetDefault("QUIZ_SUBMIT_TIMEOUT", "5s")
	v.SetDefault("QUIZ_ATTEMPT_TTL", "1h")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)

	v.SetDefault("ALLOWED_ORIGINS", "http://127.0.0.1:5173,http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 3)

	v.SetDefault("CLI_TOKEN_FILE", "")
}

// viper reports an absent explicit config file as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
