// Package main provides the entry point for the ffmix API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ffmix/ffmix-api/internal/bootstrap"
	"github.com/ffmix/ffmix-api/internal/config"
	"github.com/ffmix/ffmix-api/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting ffmix API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("tmp_dir", cfg.TmpDir),
		slog.String("tmp_prefix", cfg.TmpPrefix),
		slog.Int("http_timeout_sec", cfg.HTTPTimeoutSec),
		slog.Int("max_download_mb", cfg.MaxDownloadMB),
		slog.String("ffmpeg_bin", cfg.FFmpegBin),
		slog.String("ffprobe_bin", cfg.FFprobeBin),
		slog.Bool("auth_enabled", cfg.AuthEnabled()),
	)

	// Initialize dependencies using bootstrap
	deps := bootstrap.NewDependencies(cfg, logger)

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Pipeline, logger)
	router := server.NewRouter(handlers, logger, server.Config{APIKey: cfg.APIKey})

	// Create HTTP server. The write timeout must cover a full
	// download-encode-stream cycle, not just the handler's first byte.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(2*cfg.HTTPTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
