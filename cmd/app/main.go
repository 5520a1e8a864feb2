package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"xvenue/internal/config"
	"xvenue/internal/errs"
	"xvenue/internal/httpapi"
	"xvenue/internal/logging"
	"xvenue/internal/orchestrator"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := "config.yaml"
	if v := os.Getenv("XVENUE_CONFIG"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level})
	slog.SetDefault(logger)

	// 1. Pprof server (localhost only, for performance profiling).
	go func() {
		logger.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logger.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Discovery, registry freeze, and component construction.
	app, err := orchestrator.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 4. HTTP surface: /snapshot, /metrics, /healthz.
	api := httpapi.New(httpapi.Params{Port: cfg.HTTP.APIPort}, app.Snapshot, app.Metrics, logger)
	go func() {
		if err := api.Run(ctx); err != nil {
			logger.Error("http api server failed", slog.Any("error", err))
		}
	}()
	logger.Info("http api listening", slog.Int("port", cfg.HTTP.APIPort))

	// 5. Start the venue stream clients and the snapshot publisher. This
	// blocks until ctx is cancelled.
	logger.Info("aggregator fully operational, press Ctrl+C to exit")
	if err := app.Run(ctx); err != nil {
		if errs.IsRetriable(err) {
			logger.Warn("aggregator exited with a retriable error, restart may succeed", slog.Any("error", err))
		} else {
			logger.Error("aggregator exited with error", slog.Any("error", err))
		}
		os.Exit(1)
	}

	logger.Info("shutting down gracefully")
}
