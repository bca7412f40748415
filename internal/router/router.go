package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/handler"
	"github.com/assessly/assessly-backend/internal/middleware"
	"github.com/assessly/assessly-backend/internal/response"
	"github.com/assessly/assessly-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Result  *handler.ResultHandler
	Setting *handler.SettingHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
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

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Session creation triggers an LLM call per request, so it gets its own
	// per-IP budget.
	createLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Session Creation (Public, Rate Limited) ────────────────────
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", createLimiter.Middleware(), handlers.Session.CreateSession)
	}

	// ─── 2. Session Routes (Session Token) ─────────────────────────────
	sessionAPI := api.Group("/sessions/:sessionId")
	sessionAPI.Use(middleware.RequireSessionToken(tokens))
	{
		sessionAPI.GET("", handlers.Session.GetSession)
		sessionAPI.GET("/paper", handlers.Session.GetPaper)
		sessionAPI.PUT("/answers/:index", handlers.Session.SetAnswer)
		sessionAPI.POST("/navigate", handlers.Session.Navigate)
		sessionAPI.POST("/submit", handlers.Session.Submit)
		sessionAPI.GET("/result", handlers.Result.GetResult)
		sessionAPI.POST("/questions/:index/explanation", handlers.Result.ExplainQuestion)
	}

	// ─── 3. Settings (Operator Preferences) ────────────────────────────
	settingsGroup := api.Group("/settings")
	{
		settingsGroup.GET("", handlers.Setting.GetSettings)
		settingsGroup.PUT("", handlers.Setting.UpdateSettings)
	}

	// ─── 4. WebSocket Group (Session Token via Query) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionWSAuth(tokens))
	{
		ws.GET("/sessions/:sessionId/stream", handlers.WS.SessionStream)
	}

	return router
}
