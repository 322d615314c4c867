package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-station/internal/modules/weather/types"
	"cloudpico-station/internal/units"
)

func TelemetryTopic(stationID string) string { return fmt.Sprintf("stations/%s/telemetry", stationID) }

func HealthTopic(stationID string) string { return fmt.Sprintf("stations/%s/health", stationID) }

// Telemetry omits every reading its sensor has not produced yet.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	WindKPH     *float64  `json:"wind_kph,omitempty"`
	WindDirDeg  *float64  `json:"wind_dir_deg,omitempty"`
	WindDir     string    `json:"wind_dir,omitempty"`
	RainDayMM   float64   `json:"rain_day_mm"`
	Sequence    int       `json:"sequence"`
}

type StationHealth struct {
	StationID string    `json:"station_id"`
	SessionID string    `json:"session_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
	UptimeSec int64     `json:"uptime_sec"`
}

// Source is the aggregator's read side.
type Source interface {
	Latest() types.Snapshot
	Daytime() types.DayRollup
	Online() bool
}

type Publisher interface {
	IsConnected() bool
	PublishTelemetry(t Telemetry) error
	PublishStationHealth(h StationHealth) error
}

func BuildTelemetry(stationID string, s types.Snapshot, d types.DayRollup, now time.Time) Telemetry {
	t := Telemetry{
		StationID: stationID,
		Timestamp: now,
		RainDayMM: units.RainMM(float64(d.RainTicks)),
	}
	if s.Temperature.Valid() {
		t.Temperature = ptr(s.Temperature.Celsius)
		t.Humidity = ptr(s.Temperature.Humidity)
	}
	if s.Pressure.Valid() {
		t.Pressure = ptr(s.Pressure.HPa)
	}
	if s.Wind.Valid() {
		t.WindKPH = ptr(units.WindKPH(s.Wind.PulsesPerSec))
	}
	if s.Direction.Valid() {
		t.WindDirDeg = ptr(s.Direction.Degrees)
		t.WindDir = s.Direction.Label
	}
	return t
}

func ptr(v float64) *float64 { return &v }

type TelemetryOptions struct {
	StationID string
	SessionID string
	Interval  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// RunTelemetry publishes a telemetry message and a health message every
// interval until ctx is done. Ticks while the broker is unreachable are
// skipped, not queued.
func RunTelemetry(ctx context.Context, pub Publisher, src Source, opts TelemetryOptions) error {
	if opts.Interval <= 0 {
		return fmt.Errorf("telemetry interval must be positive, got %s", opts.Interval)
	}
	t := newTelemetryLoop(pub, src, opts)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.publishOnce()
		}
	}
}

type telemetryLoop struct {
	pub     Publisher
	src     Source
	opts    TelemetryOptions
	seq     int
	started time.Time
}

func newTelemetryLoop(pub Publisher, src Source, opts TelemetryOptions) *telemetryLoop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &telemetryLoop{pub: pub, src: src, opts: opts, started: opts.Now()}
}

func (l *telemetryLoop) publishOnce() {
	if !l.pub.IsConnected() {
		l.opts.Logger.Debug("telemetry skipped, mqtt not connected")
		return
	}
	now := l.opts.Now()

	l.seq++
	msg := BuildTelemetry(l.opts.StationID, l.src.Latest(), l.src.Daytime(), now)
	msg.Sequence = l.seq
	if err := l.pub.PublishTelemetry(msg); err != nil {
		l.opts.Logger.Warn("publish telemetry failed", "error", err)
	}

	health := StationHealth{
		StationID: l.opts.StationID,
		SessionID: l.opts.SessionID,
		LastSeen:  now,
		Healthy:   l.src.Online(),
		UptimeSec: int64(now.Sub(l.started) / time.Second),
	}
	if err := l.pub.PublishStationHealth(health); err != nil {
		l.opts.Logger.Warn("publish station health failed", "error", err)
	}
}
