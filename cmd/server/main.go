package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/database"
	"github.com/voiceslab/annotate-backend/internal/handler"
	"github.com/voiceslab/annotate-backend/internal/logger"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/router"
	"github.com/voiceslab/annotate-backend/internal/service"
	"github.com/voiceslab/annotate-backend/internal/task"
	"github.com/voiceslab/annotate-backend/internal/validator"
	"github.com/voiceslab/annotate-backend/internal/worker"
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
		Msg("Starting Annotate Backend")

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

	// ─── Load Task Registry ────────────────────────────────────────────
	registry, err := task.LoadRegistry(cfg.TasksFile, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TasksFile).Msg("Failed to load tasks file")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	resultsRepo := repository.NewResultsRepository(cfg.ResultsDir)
	prefRepo := repository.NewPreferenceRepository(rdb, log)
	stateRepo := repository.NewStateRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	monitorService := service.NewMonitorService(rdb, log)
	taskService := service.NewTaskService(registry, resultsRepo, log)
	mediaService := service.NewMediaService(cfg, log)
	submissionService := service.NewSubmissionService(registry, resultsRepo, monitorService, log)
	sessionService := service.NewSessionService(registry, prefRepo, stateRepo, submissionService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Task:       handler.NewTaskHandler(registry, taskService, mediaService, sessionService, prefRepo, log),
		Submission: handler.NewSubmissionHandler(submissionService, stateRepo, log),
		Preference: handler.NewPreferenceHandler(prefRepo, log),
		Monitor:    handler.NewMonitorHandler(registry, taskService, monitorService, log),
		WS:         handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	frameWorker := worker.NewFrameWorker(rdb, mediaService, registry, log)
	go frameWorker.Start(workerCtx)

	// ─── Prewarm Frame Cache ──────────────────────────────────────────
	// Queue every video stimulus BEFORE accepting traffic so most pages
	// find their frames already extracted.
	frameWorker.EnqueueAll(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

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

	// 2. Stop the frame worker.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
