package dht

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-station/internal/modules/weather/types"
)

// Reader is anything that produces a temperature reading; *Sensor in
// production.
type Reader interface {
	Read() (types.Temperature, error)
}

// Publisher receives successful readings; the payload queue in production.
type Publisher interface {
	Publish(types.Payload)
}

// DefaultRetryInterval keeps reads at least two seconds apart, the DHT22
// minimum sampling period.
const DefaultRetryInterval = 2 * time.Second

// Runner owns the DHT line. A trigger starts a read; failed reads are retried
// on a fixed cadence until one succeeds.
type Runner struct {
	reader   Reader
	out      Publisher
	interval time.Duration
	logger   *slog.Logger

	trigger  chan struct{}
	failures int
}

func NewRunner(reader Reader, out Publisher, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		reader:   reader,
		out:      out,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a read without blocking. Requests made while one is
// pending are merged.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run serves triggers until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.trigger:
			pending = !r.attempt()
		case <-ticker.C:
			if pending {
				pending = !r.attempt()
			}
		}
	}
}

// attempt reads once and reports whether a payload was published.
func (r *Runner) attempt() bool {
	reading, err := r.reader.Read()
	if err != nil {
		r.failures++
		r.logger.Warn("dht read failed",
			"error", err,
			"consecutive_failures", r.failures,
		)
		return false
	}
	if r.failures > 0 {
		r.logger.Info("dht recovered", "after_failures", r.failures)
	}
	r.failures = 0
	r.out.Publish(types.TemperaturePayload{Reading: reading})
	r.logger.Debug("dht reading",
		"celsius", reading.Celsius,
		"humidity", reading.Humidity,
	)
	return true
}

// ConsecutiveFailures is only safe to call from the goroutine running Run, or
// after it returned.
func (r *Runner) ConsecutiveFailures() int {
	return r.failures
}
