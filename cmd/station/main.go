package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"cloudpico-station/internal/app"
	"cloudpico-station/internal/config"
	"cloudpico-station/internal/dispatch"
	"cloudpico-station/internal/logging"
)

var version = "dev"
var appName = "cloudpico-station"

func main() {
	// A missing .env is normal outside development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	sessionID := uuid.NewString()
	logger := logging.New(cfg, version, appName, sessionID)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"dotenv", envErr == nil,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx, cfg, sessionID)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, dispatch.ErrExit):
		slog.Info("exit requested")
	default:
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
