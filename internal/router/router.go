package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/handler"
	"github.com/quizdeck/quizdeck-backend/internal/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/response"
	"github.com/quizdeck/quizdeck-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Lobby (Public, Cacheable) ──────────────────────────────────
	// Published exam listings are the same for everyone; let proxies hold
	// them briefly.
	router.GET("/api/v1/lobby",
		middleware.CacheControl(30),
		handlers.Attempt.GetLobby,
	)

	// ─── 3. Attempts (Login Optional) ──────────────────────────────────
	// Anonymous visitors can take exams; the attempt ID is their only
	// credential. Logged-in takers get their attempts recorded to history.
	attempts := router.Group("/api/v1/attempts")
	attempts.Use(middleware.OptionalJWT(authService))
	{
		attempts.POST("", handlers.Attempt.StartAttempt)
		attempts.GET("/:attempt_id", handlers.Attempt.GetAttemptState)
		attempts.POST("/:attempt_id/goto", handlers.Attempt.GotoQuestion)
		attempts.POST("/:attempt_id/next", handlers.Attempt.NextQuestion)
		attempts.POST("/:attempt_id/answer", handlers.Attempt.SelectAnswer)
		attempts.POST("/:attempt_id/mark", handlers.Attempt.ToggleMark)
		attempts.POST("/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		attempts.DELETE("/:attempt_id", handlers.Attempt.AbandonAttempt)
	}

	// Submitted-attempt history for logged-in takers.
	router.GET("/api/v1/history",
		middleware.RequireJWT(authService),
		handlers.Attempt.GetHistory,
	)

	// ─── 4. WebSocket Group (Token via Query) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 5. Admin Group (JWT + ADMIN Role) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)
		adminAPI.PUT("/exams/:exam_id/questions", handlers.Exam.ReplaceQuestions)
		adminAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		adminAPI.POST("/exams/:exam_id/archive", handlers.Exam.ArchiveExam)
	}

	return router
}
