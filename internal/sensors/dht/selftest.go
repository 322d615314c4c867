package dht

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-station/internal/bus"
)

type SelfTestResult struct {
	Attempts  int
	Successes int
	Failures  int
}

func (r SelfTestResult) Ratio() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Attempts)
}

// SelfTest reads the sensor n times, interval apart, logs the success ratio
// and then asks the process to exit.
func SelfTest(ctx context.Context, reader Reader, n int, interval time.Duration, events interface{ Publish(bus.Event) }, logger *slog.Logger) SelfTestResult {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	var res SelfTestResult

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				logger.Warn("dht self-test interrupted", "completed", res.Attempts)
				events.Publish(bus.EventExit)
				return res
			case <-ticker.C:
			}
		}
		res.Attempts++
		reading, err := reader.Read()
		if err != nil {
			res.Failures++
			logger.Info("dht self-test read", "iteration", i+1, "error", err)
			continue
		}
		res.Successes++
		logger.Info("dht self-test read",
			"iteration", i+1,
			"celsius", reading.Celsius,
			"humidity", reading.Humidity,
		)
	}

	logger.Info("dht self-test finished",
		"attempts", res.Attempts,
		"successes", res.Successes,
		"failures", res.Failures,
		"ratio", res.Ratio(),
	)
	events.Publish(bus.EventExit)
	return res
}
