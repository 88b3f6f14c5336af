package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/handler"
	"github.com/voiceslab/annotate-backend/internal/middleware"
	"github.com/voiceslab/annotate-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Task       *handler.TaskHandler
	Submission *handler.SubmissionHandler
	Preference *handler.PreferenceHandler
	Monitor    *handler.MonitorHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Every route sees a stable per-browser client ID.
	router.Use(middleware.ClientID())

	// Serve extracted video frames statically with aggressive caching (1 year).
	mediaGroup := router.Group("/media")
	mediaGroup.Use(middleware.CacheControl(31536000))
	{
		mediaGroup.Static("/", cfg.FrameCache)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for submissions (30 per minute per IP).
	submitLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Annotation API ─────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/tasks", handlers.Task.ListTasks)
		api.GET("/tasks/:task/stimuli/:stimulus_id", handlers.Task.GetStimulus)
		api.GET("/tasks/:task/stimuli/:stimulus_id/file", handlers.Task.GetStimulusFile)
		api.GET("/tasks/:task/unfilled", handlers.Task.FindUnfilled)

		api.POST("/tasks/:task/stimuli/:stimulus_id/submit",
			submitLimiter.Middleware(),
			handlers.Submission.Submit,
		)

		api.GET("/preferences", handlers.Preference.GetPreferences)
		api.PUT("/preferences", handlers.Preference.UpdatePreferences)

		api.GET("/tasks/:task/monitor", handlers.Monitor.MonitorTaskSSE)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/tasks/:task/stimuli/:stimulus_id/stream", handlers.WS.PageStream)
	}

	return router
}
