package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/handler"
	"github.com/noah-isme/adaptive-learning-portal/internal/middleware"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
	"github.com/noah-isme/adaptive-learning-portal/pkg/config"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/adaptive-learning-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/adaptive-learning-portal/pkg/middleware/requestid"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

type routeDeps struct {
	sessions  *session.Manager
	metrics   *service.MetricsService
	auth      *handler.AuthHandler
	dashboard *handler.DashboardHandler
	lessons   *handler.LessonHandler
	questions *handler.QuestionHandler
	uploads   *handler.UploadHandler
	exports   *handler.ExportHandler
	quiz      *handler.QuizHandler
	stream    *handler.QuizStreamHandler
	placement *handler.PlacementHandler
	health    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Session(d.sessions, cfg.Session.CookieName))

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	r.GET("/metrics", d.health.Prometheus)
	r.GET("/metrics/snapshot", d.health.Snapshot)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/", d.auth.Root)
	r.GET("/nav", d.auth.Nav)
	auth := r.Group("/auth")
	{
		auth.POST("/login", d.auth.Login)
		auth.POST("/register", d.auth.Register)
		auth.POST("/logout", d.auth.Logout)
		auth.GET("/session", d.auth.Session)
	}

	// Signed tokens authorise downloads on their own.
	r.GET("/exports/:token", d.exports.Download)

	signedIn := r.Group("", middleware.RequireSession(""))
	{
		signedIn.GET("/lessons", d.lessons.List)
		signedIn.GET("/lessons/:id", d.lessons.View)
	}

	student := r.Group("", middleware.RequireSession(models.RoleStudent))
	{
		student.GET("/dashboard", d.dashboard.Student)

		student.POST("/placement-test", d.placement.Start)
		student.GET("/placement-test/:id", d.placement.Get)
		student.POST("/placement-test/:id/answer", d.placement.Answer)

		student.POST("/quiz/:lessonId", d.quiz.Start)
		attempts := student.Group("/quiz/attempts/:id")
		attempts.GET("", d.quiz.Get)
		attempts.POST("/select", d.quiz.Select)
		attempts.POST("/confirm", d.quiz.Confirm)
		attempts.POST("/acknowledge", d.quiz.Acknowledge)
		attempts.DELETE("", d.quiz.Cancel)
		attempts.GET("/ws", d.stream.Stream)
	}

	r.GET("/teacher-dashboard", middleware.RequireSession(models.RoleTeacher), d.dashboard.Teacher)
	teacher := r.Group("/teacher", middleware.RequireSession(models.RoleTeacher))
	{
		teacher.POST("/lessons", middleware.Audit(logr, "create", "lesson"), d.lessons.Create)
		teacher.DELETE("/lessons/:id", middleware.Audit(logr, "delete", "lesson"), d.lessons.Delete)
		teacher.GET("/lessons/:id/questions", d.questions.List)
		teacher.POST("/lessons/:id/questions", middleware.Audit(logr, "create", "question"), d.questions.Create)
		teacher.POST("/lessons/:id/questions/generate", middleware.Audit(logr, "generate", "question"), d.questions.Generate)
		teacher.DELETE("/lessons/:id/questions/:questionId", middleware.Audit(logr, "delete", "question"), d.questions.Delete)
		teacher.POST("/upload", middleware.Audit(logr, "upload", "attachment"), d.uploads.Upload)
		teacher.POST("/analytics/export", middleware.Audit(logr, "export", "class_analytics"), d.exports.Generate)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})
	return r
}
