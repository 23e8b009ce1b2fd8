package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vadimbarashkov/short-links/internal/app"
	"github.com/vadimbarashkov/short-links/internal/config"
)

const defaultConfigPath = "./configs/config.yml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("err", err))
		cancel()
		os.Exit(1)
	}
}
