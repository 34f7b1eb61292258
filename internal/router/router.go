package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/handler"
	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Major     *handler.MajorHandler
	Student   *handler.StudentHandler
	Data      *handler.DataHandler
	Dashboard *handler.DashboardHandler
	Audit     *handler.AuditHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Every API route runs through ResolveIdentity; whether an anonymous or guest
// caller may proceed is decided by the services, not by the route table.
func SetupRouter(
	resolver middleware.IdentityResolver,
	authLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.GinMode != gin.TestMode {
		router.Use(gin.Logger())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Captcha-Token", "Content-Disposition"}
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

	identity := middleware.ResolveIdentity(resolver, log)

	api := router.Group("/api/v1")
	api.Use(identity, middleware.NoStore())

	// ─── 1. Auth Group (Rate Limited) ──────────────────────────────────
	auth := api.Group("/auth")
	{
		limited := auth.Group("")
		if authLimiter != nil {
			limited.Use(authLimiter.Middleware())
		}
		limited.GET("/captcha", handlers.Auth.Captcha)
		limited.POST("/register", handlers.Auth.Register)
		limited.POST("/login", handlers.Auth.Login)

		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", handlers.Auth.Me)
	}

	// ─── 2. Catalog ────────────────────────────────────────────────────
	majors := api.Group("/majors")
	{
		majors.GET("", handlers.Major.List)
		majors.POST("", handlers.Major.Create)
		majors.PUT("/:id", handlers.Major.Rename)
		majors.DELETE("/:id", handlers.Major.Delete)
	}

	students := api.Group("/students")
	{
		students.GET("", handlers.Student.List)
		students.GET("/:id", handlers.Student.Get)
		students.POST("", handlers.Student.Create)
		students.PUT("/:id", handlers.Student.Update)
		students.DELETE("/:id", handlers.Student.Delete)
	}

	api.GET("/dashboard", handlers.Dashboard.GetDashboardData)

	// ─── 3. Bulk Data ──────────────────────────────────────────────────
	data := api.Group("/data")
	{
		data.POST("/import", handlers.Data.Import)
		data.GET("/export", handlers.Data.Export)
	}

	// ─── 4. Audit ──────────────────────────────────────────────────────
	api.GET("/audit-log", handlers.Audit.List)

	ws := router.Group("/ws/v1")
	ws.Use(identity)
	{
		ws.GET("/audit/stream", handlers.WS.AuditStream)
	}

	return router
}
