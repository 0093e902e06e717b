// cmd/catalogd/main.go
// Package main implements the entry point for the catalog service.
// It initializes all components and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sarabot/sara-catalog-go/internal/audit"
	"github.com/sarabot/sara-catalog-go/internal/auth"
	"github.com/sarabot/sara-catalog-go/internal/catalog"
	"github.com/sarabot/sara-catalog-go/internal/config"
	"github.com/sarabot/sara-catalog-go/internal/delivery"
	"github.com/sarabot/sara-catalog-go/internal/event"
	"github.com/sarabot/sara-catalog-go/internal/match"
	"github.com/sarabot/sara-catalog-go/internal/metrics"
	"github.com/sarabot/sara-catalog-go/internal/mirror"
	"github.com/sarabot/sara-catalog-go/internal/schema"
	"github.com/sarabot/sara-catalog-go/internal/server"
	"github.com/sarabot/sara-catalog-go/internal/storage"
	"github.com/sarabot/sara-catalog-go/internal/telemetry"
)

// main initializes all components, starts the HTTP server, and handles
// graceful shutdown.
func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	if _, err := telemetry.InitTracer("catalog-service", "1.0.0"); err != nil {
		logger.Error("failed to initialize OpenTelemetry tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	// Local catalog store, the system of record for this instance
	store := storage.New(cfg.CatalogPath, cfg.SettingsPath)

	// Remote mirror (S3-compatible blob) when configured
	var mir mirror.Mirror = mirror.Disabled{}
	if cfg.MirrorConfigured() {
		s3Mirror, err := mirror.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3ObjectKey, cfg.S3AccessKey, cfg.S3SecretKey, cfg.MirrorTimeout)
		if err != nil {
			logger.Error("failed to initialize mirror client", "error", err)
			os.Exit(1)
		}
		mir = s3Mirror
		logger.Info("remote mirror enabled", "bucket", cfg.S3Bucket, "key", cfg.S3ObjectKey)
	} else {
		logger.Info("remote mirror disabled, local store is authoritative")
	}

	// Audit op-log (PostgreSQL or in-memory)
	var oplog audit.Log
	if cfg.DatabaseDSN != "" {
		oplog, err = audit.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Error("failed to initialize postgres audit log", "error", err)
			os.Exit(1)
		}
	} else {
		oplog = audit.NewMemory()
	}
	defer oplog.Close()

	// Event publisher (NATS JetStream or no-op)
	pub := event.NewPublisher(cfg.NATSURL)
	defer pub.Close()

	// Schema validator guarding remote catalog documents
	validator, err := schema.NewValidator()
	if err != nil {
		logger.Error("failed to initialize schema validator", "error", err)
		os.Exit(1)
	}

	// Mutation service and match engine
	svc := catalog.NewService(store, mir, validator, pub, oplog, metrics.NewMetrics())
	engine := match.NewEngine(cfg.MatchThreshold, cfg.MatchMinOverlap)

	// Token manager for the admin surface
	tokens := auth.NewManager(cfg.AdminPassword, cfg.JWTSecret, auth.DefaultTokenTTL)

	// Delivery routing with repeat-query suppression. The log messenger
	// stands in until a chat transport is wired.
	deliverer := delivery.NewDeliverer(delivery.LogMessenger{}, delivery.NewSuppressor(0))

	// Create HTTP mux with all handlers and middleware
	mux := server.NewMux(svc, engine, tokens, oplog, deliverer)

	// Create HTTP server with timeout configuration
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start server in a separate goroutine
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Handle graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
