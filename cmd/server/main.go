package main

import (
	"log/slog"
	"os"

	"go-lms/internal/app"
	"go-lms/internal/config"
	"go-lms/internal/logger"
)

func main() {
	// Load first so LOG_LEVEL and LOG_FORMAT from .env apply to every line.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
