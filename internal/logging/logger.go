package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"cloudpico-station/internal/config"
)

// New builds the process logger: colourised text for dev builds, JSON
// otherwise. sessionID tags every record of this boot.
func New(cfg config.Config, version, appName, sessionID string) *slog.Logger {
	return newLogger(os.Stdout, cfg, version, appName, sessionID)
}

func newLogger(w io.Writer, cfg config.Config, version, appName, sessionID string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName, "session", sessionID)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"station", cfg.StationID,
		"session", sessionID,
	)
}
