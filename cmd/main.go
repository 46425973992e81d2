/*
Package main is the entry point for the SEO Tracker chat service.

It is responsible for loading configuration, initializing the global logging system,
connecting the document store, starting the background sweepers (presence staleness
and message archival), setting up the HTTP server, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"seotracker/internal/app/chat"
	"seotracker/internal/app/presence"
	"seotracker/internal/app/session"
	"seotracker/internal/app/storage"
	"seotracker/internal/app/store"
	"seotracker/internal/configs"
	"seotracker/internal/handler"
	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
)

func main() {
	// Best-effort: a missing .env file just means plain environment variables.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("retention_days", cfg.RetentionDays).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockx.System()

	// Connect the document store and start live delivery.
	st, err := store.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize document store")
	}
	defer st.Close()

	go func() {
		if err := st.Listen(ctx); err != nil {
			logx.Error(err, "Live delivery listener stopped")
		}
	}()

	// Background sweeps: stale-online downgrade and message archival.
	sweeper := presence.NewSweeper(st, clock, cfg.StaleThreshold, cfg.SweepCron)
	go sweeper.Run(ctx)

	archiver := store.NewArchiver(st, clock, time.Duration(cfg.RetentionDays)*24*time.Hour, cfg.ArchiveCron)
	go archiver.Run(ctx)

	// Avatar storage is optional in development.
	var storageService storage.StorageService
	if cfg.StorageEnabled() {
		storageService, err = storage.NewStorageService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	} else {
		logx.Warn("S3 storage not configured. Avatar uploads disabled.")
	}

	sessions := session.NewManager()

	deps := &handler.AppDeps{
		Config:         cfg,
		Store:          st,
		StorageService: storageService,
		Sessions:       sessions,
		Clock:          clock,
		SessionConfig: session.Config{
			Presence: presence.Config{
				AwayAfter: cfg.AwayTimeout,
				Heartbeat: cfg.HeartbeatInterval,
			},
			Typing: chat.TypingConfig{
				Debounce: cfg.TypingDebounce,
				Interval: cfg.TypingInterval,
				Idle:     cfg.TypingIdle,
			},
		},
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("SEO Tracker chat service starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	sessions.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
