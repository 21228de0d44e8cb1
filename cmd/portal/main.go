package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/adaptive-learning-portal/api/swagger"
	"github.com/noah-isme/adaptive-learning-portal/internal/client"
	"github.com/noah-isme/adaptive-learning-portal/internal/handler"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	"github.com/noah-isme/adaptive-learning-portal/internal/repository"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
	"github.com/noah-isme/adaptive-learning-portal/pkg/cache"
	"github.com/noah-isme/adaptive-learning-portal/pkg/config"
	"github.com/noah-isme/adaptive-learning-portal/pkg/export"
	"github.com/noah-isme/adaptive-learning-portal/pkg/logger"
	"github.com/noah-isme/adaptive-learning-portal/pkg/storage"
)

// @title Adaptive Learning Portal
// @version 0.1.0
// @description Presentation API in front of the adaptive learning backend
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
	}

	app, err := build(cfg, logr, redisClient)
	if err != nil {
		logr.Fatal("failed to assemble portal", zap.Error(err))
	}
	defer app.registry.Shutdown()

	go app.registry.Run(ctx, time.Minute)
	go app.exports.Run(ctx, cfg.Exports.SignedURLTTL)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type portal struct {
	router   *gin.Engine
	registry *quiz.Registry
	exports  *service.ExportService
}

func build(cfg *config.Config, logr *zap.Logger, redisClient *redis.Client) (*portal, error) {
	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	backend := client.New(cfg.Backend,
		client.WithLogger(logr),
		client.WithObserver(metricsSvc),
		client.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.RateBurst),
	)

	var store session.Store = session.NewMemoryStore()
	if cfg.Session.Store == config.SessionStoreRedis {
		store = session.NewRedisStore(redisClient)
	}
	sessions := session.NewManager(store, session.NewParser(cfg.Session.JWTSecret), cfg.Session.TTL, logr)

	checks := map[string]handler.ReadinessCheck{}
	var cacheRepo service.CacheRepository = repository.NewMemoryCacheRepository()
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		checks["redis"] = redisRepo.Ping
		if cfg.Redis.Enabled {
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	uploadSvc := service.NewUploadService(backend, cfg.Upload.MaxBytes, logr)
	lessonSvc := service.NewLessonService(backend, uploadSvc, cacheSvc, validate, logr)
	questionSvc := service.NewQuestionService(backend, cacheSvc, validate, logr)
	authSvc := service.NewAuthService(backend, sessions, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Progress:  backend,
		Analytics: backend,
		Lessons:   lessonSvc,
		Cache:     cacheSvc,
		Logger:    logr,
	})
	registry := quiz.NewRegistry(quiz.RealClock(), cfg.Quiz.AttemptTTL, metricsSvc.SetActiveAttempts)
	quizSvc := service.NewQuizService(service.QuizServiceParams{
		Questions: questionSvc,
		Answers:   backend,
		Placement: backend,
		Registry:  registry,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Settings: quiz.Settings{
			QuestionTimeLimit: cfg.Quiz.QuestionTimeLimit,
			FeedbackDelay:     cfg.Quiz.FeedbackDelay,
			SubmitTimeout:     cfg.Quiz.SubmitTimeout,
		},
		Logger: logr,
	})
	exportSvc := service.NewExportService(backend, exportStorage,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{ResultTTL: cfg.Exports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter())

	sessions.OnInvalidate(service.LogoutCleanup(registry, cacheSvc, logr))

	router := newRouter(cfg, logr, routeDeps{
		sessions:  sessions,
		metrics:   metricsSvc,
		auth:      handler.NewAuthHandler(authSvc, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure, TTL: cfg.Session.TTL}),
		dashboard: handler.NewDashboardHandler(dashboardSvc),
		lessons:   handler.NewLessonHandler(lessonSvc),
		questions: handler.NewQuestionHandler(questionSvc),
		uploads:   handler.NewUploadHandler(uploadSvc),
		exports:   handler.NewExportHandler(exportSvc),
		quiz:      handler.NewQuizHandler(quizSvc),
		stream:    handler.NewQuizStreamHandler(quizSvc, originChecker(cfg.CORS.AllowedOrigins), logr),
		placement: handler.NewPlacementHandler(quizSvc),
		health:    handler.NewMetricsHandler(metricsSvc, checks),
	})

	logr.Debug("portal assembled", zap.String("session_store", cfg.Session.Store), zap.Bool("query_cache", cacheSvc.Enabled()))
	return &portal{router: router, registry: registry, exports: exportSvc}, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
