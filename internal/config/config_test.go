package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points CONFIG_FILE at a missing file so only env vars apply.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	for _, k := range []string{"APP_ENV", "LOG_LEVEL", "HARDWARE", "SQLITE_PATH", "SQLITE_DSN", "SQLITE_MAX_OPEN_CONNS", "BAROMETER_ADDR", "DHT_MODEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want dev", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.Hardware != "sim" {
		t.Errorf("Hardware = %q, want sim in dev", cfg.Hardware)
	}
	if cfg.Driver != "sqlite3" || cfg.Path != "data/dev/station.db" || cfg.MaxOpenConns != 1 {
		t.Errorf("sqlite = %q %q %d, want dev profile", cfg.Driver, cfg.Path, cfg.MaxOpenConns)
	}
	if !filepath.IsAbs(cfg.StaticDir) {
		t.Errorf("StaticDir = %q, want absolute", cfg.StaticDir)
	}
	if cfg.BarometerAddr != 0x76 {
		t.Errorf("BarometerAddr = %#x, want 0x76", cfg.BarometerAddr)
	}
	if cfg.Schedule.Rollover != "@midnight" || cfg.Schedule.TickPeriod != 100*time.Millisecond {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.DHT.RetryInterval != 2*time.Second || cfg.DHT.Model != "dht22" {
		t.Errorf("DHT = %+v", cfg.DHT)
	}
	if cfg.MQTT.Enabled || cfg.Barometer.Enabled || cfg.Display.Enabled {
		t.Error("optional components enabled by default")
	}
}

func TestLoad_ProdUsesPeriphAndProdProfile(t *testing.T) {
	isolate(t)
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hardware != "periph" {
		t.Errorf("Hardware = %q, want periph", cfg.Hardware)
	}
	if cfg.Path != "/var/lib/cloudpico-station/station.db" {
		t.Errorf("Path = %q, want prod profile path", cfg.Path)
	}
}

func TestLoad_FileWithEnvOverrides(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "station.yaml")
	body := `
stationId: backyard
httpAddr: ":9090"
dht:
  model: dht11
schedule:
  windRain: "*/10 * * * *"
profiles:
  dev:
    path: /tmp/from-file.db
    maxOpenConns: 4
`
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("SQLITE_MAX_OPEN_CONNS", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StationID != "backyard" || cfg.HTTPAddr != ":9090" {
		t.Errorf("station/http = %q %q", cfg.StationID, cfg.HTTPAddr)
	}
	if cfg.DHT.Model != "dht11" {
		t.Errorf("DHT.Model = %q, want dht11", cfg.DHT.Model)
	}
	if cfg.Schedule.WindRain != "*/10 * * * *" || cfg.Schedule.Temperature != "@every 1m" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.Path != "/tmp/from-file.db" {
		t.Errorf("Path = %q, want file profile", cfg.Path)
	}
	if cfg.MaxOpenConns != 2 {
		t.Errorf("MaxOpenConns = %d, want env override 2", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 1 {
		t.Errorf("MaxIdleConns = %d, want built-in 1", cfg.MaxIdleConns)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"app env", "APP_ENV", "staging", "AppEnv"},
		{"log level", "LOG_LEVEL", "loud", "invalid LOG_LEVEL"},
		{"hardware", "HARDWARE", "arduino", "Hardware"},
		{"dht model", "DHT_MODEL", "dht33", "Model"},
		{"max open conns", "SQLITE_MAX_OPEN_CONNS", "many", "SQLITE_MAX_OPEN_CONNS"},
		{"barometer addr", "BAROMETER_ADDR", "zz", "Address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}
