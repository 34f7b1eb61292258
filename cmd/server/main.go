package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/database"
	"github.com/stemsi/roster-backend/internal/handler"
	"github.com/stemsi/roster-backend/internal/logger"
	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
	"github.com/stemsi/roster-backend/internal/router"
	"github.com/stemsi/roster-backend/internal/service"
	"github.com/stemsi/roster-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Roster Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Store ──────────────────────────────────────────────
	var (
		store      repository.Store
		identities repository.IdentityStore
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
		identities = repository.NewIdentityRepository(pool)
	case config.StoreDriverMemory:
		mem := repository.NewMemoryStore()
		store, identities = mem, mem
		log.Warn().Msg("Using in-memory store; all data is lost on restart")
	default:
		log.Fatal().Str("store", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	guard := service.NewGuard()
	auditService := service.NewAuditService(store, guard, service.NewRedisAuditBus(rdb, log), log)
	authService := service.NewAuthService(cfg, rdb)
	captchaService := service.NewCaptchaService(rdb, cfg.CaptchaTTL)
	identityService := service.NewIdentityService(identities, authService, captchaService, log)
	majorService := service.NewMajorService(store, guard, auditService, log)
	studentService := service.NewStudentService(store, guard, auditService, log)
	importService := service.NewImportService(auditService, service.ImportOptions{
		SkipHeader:  cfg.ImportSkipHeader,
		MaxExamples: cfg.ImportMaxRejectExamples,
	}, log)
	exportService := service.NewExportService(auditService)
	dashboardService := service.NewDashboardService(store, guard)

	if cfg.StoreDriver == config.StoreDriverMemory {
		bootstrapMemoryAdmin(ctx, identityService, cfg, log)
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(identityService, captchaService, cfg, log),
		Major:     handler.NewMajorHandler(majorService, log),
		Student:   handler.NewStudentHandler(studentService, log),
		Data:      handler.NewDataHandler(importService, exportService, cfg.MaxUploadBytes, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		Audit:     handler.NewAuditHandler(auditService, log),
		WS:        handler.NewWSHandler(auditService, log, cfg.AllowedOrigins),
	}

	// Rate limiter for auth routes (AUTH_RATE_LIMIT requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(rdb, "auth", cfg.AuthRateLimit, time.Minute, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(identityService, authLimiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// bootstrapMemoryAdmin creates the configured administrator in a fresh
// in-memory store. Without a password the server runs read-only.
func bootstrapMemoryAdmin(ctx context.Context, identities *service.IdentityService, cfg *config.Config, log zerolog.Logger) {
	if cfg.MemoryAdminPassword == "" {
		log.Warn().Msg("MEMORY_ADMIN_PASSWORD not set; no administrator can sign in")
		return
	}
	admin, err := identities.Bootstrap(ctx, cfg.MemoryAdminUsername, cfg.MemoryAdminPassword, model.RoleAdmin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap administrator")
	}
	log.Info().Int("identity_id", admin.ID).Str("username", admin.Username).Msg("Bootstrapped administrator")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
