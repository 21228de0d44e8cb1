package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/client"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	"github.com/noah-isme/adaptive-learning-portal/internal/repository"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
	"github.com/noah-isme/adaptive-learning-portal/pkg/config"
	"github.com/noah-isme/adaptive-learning-portal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logr := logger.NewCLI(os.Getenv("LEARNCTL_DEBUG") != "")
	defer logr.Sync() //nolint:errcheck

	cli := newCommandLine(cfg, tokenFile(cfg.CLI.TokenFile), logr)
	defer cli.quiz.Registry().Shutdown()

	if err := cli.run(context.Background(), os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}

func tokenFile(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".learnctl_token"
	}
	return filepath.Join(home, ".learnctl", "token.json")
}

func newCommandLine(cfg *config.Config, tokenPath string, logr *zap.Logger) *commandLine {
	validate := validator.New()
	backend := client.New(cfg.Backend, client.WithLogger(logr))
	sessions := session.NewManager(session.NewFileStore(tokenPath), session.NewParser(cfg.Session.JWTSecret), 0, logr)
	cache := service.NewCacheService(repository.NewMemoryCacheRepository(), nil, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	lessons := service.NewLessonService(backend, nil, cache, validate, logr)
	questions := service.NewQuestionService(backend, cache, validate, logr)
	quizSvc := service.NewQuizService(service.QuizServiceParams{
		Questions: questions,
		Answers:   backend,
		Placement: backend,
		Cache:     cache,
		Settings: quiz.Settings{
			QuestionTimeLimit: cfg.Quiz.QuestionTimeLimit,
			FeedbackDelay:     cfg.Quiz.FeedbackDelay,
			SubmitTimeout:     cfg.Quiz.SubmitTimeout,
		},
		Logger: logr,
	})
	sessions.OnInvalidate(service.LogoutCleanup(quizSvc.Registry(), cache, logr))

	return &commandLine{
		out:      os.Stdout,
		in:       bufio.NewReader(os.Stdin),
		sessions: sessions,
		auth:     service.NewAuthService(backend, sessions, validate, logr),
		lessons:  lessons,
		quiz:     quizSvc,
		dashboard: service.NewDashboardService(service.DashboardServiceParams{
			Progress:  backend,
			Analytics: backend,
			Lessons:   lessons,
			Cache:     cache,
			Logger:    logr,
		}),
	}
}
