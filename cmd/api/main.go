package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledgerplan/internal/api"
	"github.com/dvloznov/ledgerplan/internal/api/handlers"
	"github.com/dvloznov/ledgerplan/internal/app"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/config"
	"github.com/dvloznov/ledgerplan/internal/jobs"
	"github.com/dvloznov/ledgerplan/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerplan/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	// Initialize logger
	log, err := logger.NewWithOptions(cfg.LoggerOptions())
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logger configuration")
	}

	ctx := context.Background()
	clk := clock.NewReal()

	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	importService := app.NewImportService(backend, cfg, clk, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobBuffer, jobStore,
		inmemory.WithWorkers(cfg.JobWorkers),
		inmemory.WithLogger(log),
	)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, jobs.NewImportHandler(importService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	handler := api.NewRouter(api.Handlers{
		Imports:     handlers.NewImportsHandler(importService, jobQueue, jobStore, log),
		Jobs:        handlers.NewJobsHandler(jobStore, log),
		Obligations: handlers.NewObligationsHandler(backend.Store, clk, log),
		Statements:  handlers.NewStatementsHandler(backend.Store, clk, log),
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("backend", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
