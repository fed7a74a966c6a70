package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/handler"
	"github.com/stemsi/exstem-assess/internal/middleware"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt  *handler.AttemptHandler
	Exam     *handler.ExamHandler
	Question *handler.QuestionHandler
	Grading  *handler.GradingHandler
	Monitor  *handler.MonitorHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router's middlewares.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	rdb *redis.Client,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so both the envelope and the access log carry it.
	router.Use(response.RequestIDMiddleware(), response.RequestLogger(log))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/exams/:exam_id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.GET("/exams/:exam_id/attempts", handlers.Attempt.ListAttempts)
		studentAPI.GET("/attempts/:id", handlers.Attempt.GetAttempt)
		studentAPI.GET("/attempts/:id/paper", handlers.Attempt.GetPaper)
		studentAPI.PUT("/attempts/:id/progress",
			middleware.NewWindowLimiter(rdb, cfg.AutosaveRatePerMinute).Middleware(middleware.StudentAutosaveKey),
			handlers.Attempt.SaveProgress,
		)
		studentAPI.POST("/attempts/:id/submit", handlers.Attempt.SubmitAttempt)
		studentAPI.POST("/attempts/:id/violations", handlers.Attempt.RecordViolation)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	// Upgrades are limited per IP ahead of the token check so reconnect
	// loops and token guessing are both capped.
	wsLimiter := middleware.NewRateLimiter(ctx, cfg.WSConnectsPerMinute, time.Minute)
	ws := router.Group("/ws/v1")
	ws.Use(wsLimiter.Middleware(), middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Question bank
		adminAPI.GET("/questions",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.ListQuestions,
		)
		adminAPI.POST("/questions",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.CreateQuestion,
		)
		adminAPI.GET("/questions/:id",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.GetQuestion,
		)
		adminAPI.PATCH("/questions/:id",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.UpdateQuestion,
		)

		// Exam management
		adminAPI.POST("/exams",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.CreateExam,
		)
		adminAPI.GET("/exams/:id",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.GetExam,
		)
		adminAPI.PUT("/exams/:id/questions",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.AttachQuestions,
		)
		adminAPI.POST("/exams/:id/publish",
			middleware.RequirePermission(model.PermissionExamsPublish),
			handlers.Exam.PublishExam,
		)
		adminAPI.POST("/exams/:id/archive",
			middleware.RequirePermission(model.PermissionExamsPublish),
			handlers.Exam.ArchiveExam,
		)
		adminAPI.GET("/exams/:id/submissions",
			middleware.RequirePermission(model.PermissionSubmissionsRead),
			handlers.Exam.ListSubmissions,
		)
		adminAPI.POST("/exams/:id/recompute-highest",
			middleware.RequirePermission(model.PermissionSubmissionsGrade),
			handlers.Grading.RecomputeHighest,
		)
		adminAPI.GET("/exams/:id/monitor",
			middleware.RequirePermission(model.PermissionExamsMonitor),
			handlers.Monitor.MonitorExamSSE,
		)

		// Review and manual grading
		adminAPI.GET("/grading/pending",
			middleware.RequirePermission(model.PermissionSubmissionsGrade),
			handlers.Grading.PendingQueue,
		)
		adminAPI.GET("/submissions/:id",
			middleware.RequireAnyPermission(model.PermissionSubmissionsRead, model.PermissionSubmissionsGrade),
			handlers.Grading.ReviewSubmission,
		)
		adminAPI.PUT("/submissions/:id/answers/:question_id",
			middleware.RequirePermission(model.PermissionSubmissionsGrade),
			handlers.Grading.GradeAnswer,
		)
	}

	return router
}
