package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openamc/amctrack/internal/api"
	"github.com/openamc/amctrack/internal/config"
	"github.com/openamc/amctrack/internal/db"
	"github.com/openamc/amctrack/internal/exam"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/problems"
	"github.com/openamc/amctrack/internal/remote"
	"github.com/openamc/amctrack/internal/services"
	"github.com/openamc/amctrack/internal/syncer"
	"github.com/openamc/amctrack/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("AMCTrack Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("supabase_url=%s", cfg.SupabaseURL)
	log.Debug("auth_exchange_url=%s", cfg.AuthExchangeURL)
	log.Debug("sync_interval=%v", cfg.SyncInterval)
	log.Debug("sync_threshold=%d", cfg.SyncThreshold)
	log.Debug("snapshot_max_age=%v", cfg.SnapshotMaxAge)
	log.Debug("import_worker_count=%d", cfg.ImportWorkerCount)
	log.Debug("import_queue_size=%d", cfg.ImportQueueSize)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize worker pool
	importPool := worker.NewPool(cfg.ImportWorkerCount, cfg.ImportQueueSize)

	// Initialize stores and services
	store := remote.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	local := kv.NewSQLite(database.DB)
	problemRepo := problems.NewSQLiteRepository(database.DB)

	sessionService := services.NewSessionService(store, local, cfg.AuthExchangeURL, syncer.Options{
		Interval:       cfg.SyncInterval,
		Threshold:      cfg.SyncThreshold,
		SnapshotMaxAge: cfg.SnapshotMaxAge,
	})
	bookmarkService := services.NewBookmarkService(sessionService)
	examRunner := exam.NewRunner(problemRepo, exam.RecorderFunc(func(userID string, a models.AttemptRecord) {
		if err := sessionService.RecordAttempt(userID, a); err != nil {
			log.Warn("exam attempt dropped: %v", err)
		}
	}))

	srv := &api.Server{
		Sessions:   sessionService,
		Bookmarks:  bookmarkService,
		Problems:   problemRepo,
		Exams:      examRunner,
		ImportPool: importPool,
	}

	ctx, cancel := context.WithCancel(context.Background())
	importPool.Start(ctx)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Cancel worker context
	log.Debug("stopping worker pool")
	cancel()

	// Shutdown HTTP server
	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Final flush or emergency snapshot for the active session
	log.Debug("shutting down analytics session")
	sessionService.Shutdown(shutdownCtx)

	log.Debug("stopping import pool")
	importPool.Stop()

	log.Info("===========================================")
	log.Info("AMCTrack Server Stopped")
	log.Info("===========================================")
}
