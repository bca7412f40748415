package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/database"
	"github.com/assessly/assessly-backend/internal/explain"
	"github.com/assessly/assessly-backend/internal/handler"
	"github.com/assessly/assessly-backend/internal/llm"
	"github.com/assessly/assessly-backend/internal/logger"
	"github.com/assessly/assessly-backend/internal/prefs"
	"github.com/assessly/assessly-backend/internal/questionbank"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/assessly/assessly-backend/internal/router"
	"github.com/assessly/assessly-backend/internal/scoring"
	"github.com/assessly/assessly-backend/internal/service"
	"github.com/assessly/assessly-backend/internal/validator"
	"github.com/assessly/assessly-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Assessly Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	warningRepo := repository.NewWarningRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	prefStore := prefs.NewStore(settingRepo, rdb, log)
	llmClient := llm.NewClient(cfg, prefStore, log)
	generator := questionbank.NewGenerator(llmClient, log)
	explainer := explain.NewService(llmClient, log)
	scorer := scoring.NewService(rdb, log)
	recorder := service.NewQueueRecorder(rdb, log)
	tokenService := service.NewTokenService(cfg)
	sessionService := service.NewSessionService(cfg, generator, scorer, recorder, sessionRepo, tokenService, rdb, log)
	resultService := service.NewResultService(sessionService, sessionRepo, resultRepo, explainer, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		Result:  handler.NewResultHandler(resultService),
		Setting: handler.NewSettingHandler(prefStore),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(answerRepo, rdb, log)
	warningWorker := worker.NewWarningWorker(warningRepo, rdb, log)
	resultWorker := worker.NewResultWorker(resultRepo, sessionRepo, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go warningWorker.Start(workerCtx)
	go resultWorker.Start(workerCtx)

	// ─── Start Session Reaper ─────────────────────────────────────────
	sessionService.StartReaper(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop live session controllers.
	sessionService.CloseAll()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
