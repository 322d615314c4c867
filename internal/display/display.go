// Package display drives the station's character display.
package display

import (
	"log/slog"
	"strings"
)

type Display interface {
	Clear() error
	Home() error
	Write(text string, page int) error
}

// LogDisplay stands in for an LCD on boards without one.
type LogDisplay struct {
	logger *slog.Logger
}

func NewLogDisplay(logger *slog.Logger) *LogDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDisplay{logger: logger}
}

func (d *LogDisplay) Clear() error { return nil }

func (d *LogDisplay) Home() error { return nil }

func (d *LogDisplay) Write(text string, page int) error {
	d.logger.Debug("display page", "page", page, "text", strings.ReplaceAll(text, "\n", " | "))
	return nil
}
