package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigFile = "station.yaml"

type DHTConfig struct {
	Pin           string        `yaml:"pin" env:"DHT_PIN" env-default:"GPIO4" validate:"required"`
	Model         string        `yaml:"model" env:"DHT_MODEL" env-default:"dht22" validate:"oneof=dht11 dht22"`
	RetryInterval time.Duration `yaml:"retryInterval" env:"DHT_RETRY_INTERVAL" env-default:"2s" validate:"gt=0"`
	// SelfTest > 0 runs that many reads, reports and exits.
	SelfTest int `yaml:"selfTest" env:"DHT_SELF_TEST" env-default:"0" validate:"min=0"`
}

type PulseConfig struct {
	AnemometerPin string        `yaml:"anemometerPin" env:"ANEMOMETER_PIN" env-default:"GPIO5" validate:"required"`
	RainPin       string        `yaml:"rainPin" env:"RAIN_PIN" env-default:"GPIO6" validate:"required"`
	Debounce      time.Duration `yaml:"debounce" env:"PULSE_DEBOUNCE" env-default:"1ms" validate:"min=0"`
}

type VaneConfig struct {
	SPIPort     string  `yaml:"spiPort" env:"VANE_SPI_PORT"`
	Channel     int     `yaml:"channel" env:"VANE_CHANNEL" env-default:"0" validate:"min=0,max=7"`
	VRef        float64 `yaml:"vref" env:"VANE_VREF" env-default:"3.3" validate:"gt=0"`
	Calibration float64 `yaml:"calibration" env:"VANE_CALIBRATION" env-default:"0"`
}

type BarometerConfig struct {
	Enabled bool   `yaml:"enabled" env:"BAROMETER_ENABLED" env-default:"false"`
	I2CBus  string `yaml:"i2cBus" env:"BAROMETER_I2C_BUS"`
	Address string `yaml:"address" env:"BAROMETER_ADDR" env-default:"0x76" validate:"hexadecimal"`
}

type DisplayConfig struct {
	Enabled bool   `yaml:"enabled" env:"LCD_ENABLED" env-default:"false"`
	Cols    int    `yaml:"cols" env:"LCD_COLS" env-default:"16" validate:"min=1,max=40"`
	Rows    int    `yaml:"rows" env:"LCD_ROWS" env-default:"2" validate:"min=1,max=4"`
	RS      string `yaml:"rs" env:"LCD_RS" env-default:"GPIO26"`
	E       string `yaml:"e" env:"LCD_E" env-default:"GPIO19"`
	D4      string `yaml:"d4" env:"LCD_D4" env-default:"GPIO13"`
	D5      string `yaml:"d5" env:"LCD_D5" env-default:"GPIO16"`
	D6      string `yaml:"d6" env:"LCD_D6" env-default:"GPIO20"`
	D7      string `yaml:"d7" env:"LCD_D7" env-default:"GPIO21"`
	// Every is the page rotation period in aggregator cycles.
	Every int `yaml:"every" env:"DISPLAY_EVERY" env-default:"5" validate:"min=1"`
}

type ScheduleConfig struct {
	WindRain    string        `yaml:"windRain" env:"SCHEDULE_WIND_RAIN" env-default:"@every 5m" validate:"required"`
	Temperature string        `yaml:"temperature" env:"SCHEDULE_TEMPERATURE" env-default:"@every 1m" validate:"required"`
	Pressure    string        `yaml:"pressure" env:"SCHEDULE_PRESSURE" env-default:"@every 5m" validate:"required"`
	Rollover    string        `yaml:"rollover" env:"SCHEDULE_ROLLOVER" env-default:"@midnight" validate:"required"`
	TickPeriod  time.Duration `yaml:"tickPeriod" env:"SCHEDULE_TICK_PERIOD" env-default:"100ms" validate:"gt=0"`
}

type AggregatorConfig struct {
	CycleBudget    time.Duration `yaml:"cycleBudget" env:"CYCLE_BUDGET" env-default:"1s" validate:"gt=0"`
	PersistTimeout time.Duration `yaml:"persistTimeout" env:"PERSIST_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

type ConnectivityConfig struct {
	PingURL string        `yaml:"pingUrl" env:"PING_URL" env-default:"https://www.google.com" validate:"url"`
	Timeout time.Duration `yaml:"timeout" env:"PING_TIMEOUT" env-default:"10s" validate:"gt=0"`
	// Every is the ping period in aggregator cycles.
	Every int `yaml:"every" env:"CONNECTIVITY_EVERY" env-default:"60" validate:"min=1"`
}

type MQTTConfig struct {
	Enabled  bool          `yaml:"enabled" env:"MQTT_ENABLED" env-default:"false"`
	Broker   string        `yaml:"broker" env:"MQTT_BROKER" env-default:"localhost" validate:"required"`
	Port     int           `yaml:"port" env:"MQTT_PORT" env-default:"1883" validate:"min=1,max=65535"`
	Username string        `yaml:"username" env:"MQTT_USERNAME"`
	Password string        `yaml:"password" env:"MQTT_PASSWORD"`
	Interval time.Duration `yaml:"interval" env:"MQTT_INTERVAL" env-default:"1m" validate:"gt=0"`
}

// SQLiteProfile is the persistence setup for one APP_ENV.
type SQLiteProfile struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

var builtinProfiles = map[string]SQLiteProfile{
	"dev": {
		Driver:       "sqlite3",
		Path:         "data/dev/station.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	},
	"prod": {
		Driver:       "sqlite3",
		Path:         "/var/lib/cloudpico-station/station.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	},
}

// sqliteEnv holds explicit overrides. Empty means unset.
type sqliteEnv struct {
	Driver          string `env:"SQLITE_DRIVER"`
	DSN             string `env:"SQLITE_DSN"`
	Path            string `env:"SQLITE_PATH"`
	MaxOpenConns    string `env:"SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns    string `env:"SQLITE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `env:"SQLITE_CONN_MAX_LIFETIME"`
}

type rawConfig struct {
	AppEnv    string `yaml:"appEnv" env:"APP_ENV" env-default:"dev" validate:"oneof=dev prod"`
	LogLevel  string `yaml:"logLevel" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr  string `yaml:"httpAddr" env:"HTTP_ADDR" env-default:":8080" validate:"required"`
	StaticDir string `yaml:"staticDir" env:"STATIC_DIR" env-default:"static"`
	StationID string `yaml:"stationId" env:"STATION_ID" env-default:"station-1" validate:"required"`
	Hardware  string `yaml:"hardware" env:"HARDWARE" validate:"omitempty,oneof=sim periph"`

	DHT          DHTConfig          `yaml:"dht"`
	Pulse        PulseConfig        `yaml:"pulse"`
	Vane         VaneConfig         `yaml:"vane"`
	Barometer    BarometerConfig    `yaml:"barometer"`
	Display      DisplayConfig      `yaml:"display"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Aggregator   AggregatorConfig   `yaml:"aggregator"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	MQTT         MQTTConfig         `yaml:"mqtt"`

	Profiles map[string]SQLiteProfile `yaml:"profiles"`
	SQLite   sqliteEnv                `yaml:"-"`
}

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	StationID string
	// Hardware is "periph" for the real board and "sim" for simulated sensors.
	Hardware string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DHT           DHTConfig
	Pulse         PulseConfig
	Vane          VaneConfig
	Barometer     BarometerConfig
	BarometerAddr uint16
	Display       DisplayConfig
	Schedule      ScheduleConfig
	Aggregator    AggregatorConfig
	Connectivity  ConnectivityConfig
	MQTT          MQTTConfig
}

var validate = validator.New()

// Load reads CONFIG_FILE (default station.yaml) if it exists and applies
// environment overrides on top.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = defaultConfigFile
	}

	var raw rawConfig
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &raw); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(&raw); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	} else {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	return build(raw)
}

func build(raw rawConfig) (Config, error) {
	raw.AppEnv = strings.TrimSpace(raw.AppEnv)
	if err := validate.Struct(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	level, err := parseLogLevel(raw.LogLevel)
	if err != nil {
		return Config{}, err
	}

	staticDir, err := filepath.Abs(raw.StaticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", raw.StaticDir, err)
	}

	hardware := raw.Hardware
	if hardware == "" {
		hardware = "sim"
		if raw.AppEnv == "prod" {
			hardware = "periph"
		}
	}

	profile, err := resolveProfile(raw.AppEnv, raw.Profiles, raw.SQLite)
	if err != nil {
		return Config{}, err
	}

	addr, err := parseI2CAddr(raw.Barometer.Address)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:          raw.AppEnv,
		LogLevel:        level,
		HTTPAddr:        raw.HTTPAddr,
		StaticDir:       staticDir,
		StationID:       raw.StationID,
		Hardware:        hardware,
		Driver:          profile.Driver,
		DSN:             profile.DSN,
		Path:            profile.Path,
		MaxOpenConns:    profile.MaxOpenConns,
		MaxIdleConns:    profile.MaxIdleConns,
		ConnMaxLifetime: profile.ConnMaxLifetime,
		DHT:             raw.DHT,
		Pulse:           raw.Pulse,
		Vane:            raw.Vane,
		Barometer:       raw.Barometer,
		BarometerAddr:   addr,
		Display:         raw.Display,
		Schedule:        raw.Schedule,
		Aggregator:      raw.Aggregator,
		Connectivity:    raw.Connectivity,
		MQTT:            raw.MQTT,
	}, nil
}

// resolveProfile layers the built-in profile, the file's profile and the
// SQLITE_* variables, later layers winning field by field.
func resolveProfile(appEnv string, fromFile map[string]SQLiteProfile, env sqliteEnv) (SQLiteProfile, error) {
	p := builtinProfiles[appEnv]
	if f, ok := fromFile[appEnv]; ok {
		if f.Driver != "" {
			p.Driver = f.Driver
		}
		if f.DSN != "" {
			p.DSN = f.DSN
		}
		if f.Path != "" {
			p.Path = f.Path
		}
		if f.MaxOpenConns != 0 {
			p.MaxOpenConns = f.MaxOpenConns
		}
		if f.MaxIdleConns != 0 {
			p.MaxIdleConns = f.MaxIdleConns
		}
		if f.ConnMaxLifetime != 0 {
			p.ConnMaxLifetime = f.ConnMaxLifetime
		}
	}

	if s := strings.TrimSpace(env.Driver); s != "" {
		p.Driver = s
	}
	if s := strings.TrimSpace(env.DSN); s != "" {
		p.DSN = s
	}
	if s := strings.TrimSpace(env.Path); s != "" {
		p.Path = s
	}
	if s := strings.TrimSpace(env.MaxOpenConns); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return SQLiteProfile{}, fmt.Errorf("invalid SQLITE_MAX_OPEN_CONNS %q: %w", s, err)
		}
		p.MaxOpenConns = n
	}
	if s := strings.TrimSpace(env.MaxIdleConns); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return SQLiteProfile{}, fmt.Errorf("invalid SQLITE_MAX_IDLE_CONNS %q: %w", s, err)
		}
		p.MaxIdleConns = n
	}
	if s := strings.TrimSpace(env.ConnMaxLifetime); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return SQLiteProfile{}, fmt.Errorf("invalid SQLITE_CONN_MAX_LIFETIME %q: %w", s, err)
		}
		p.ConnMaxLifetime = d
	}

	if p.Driver == "" {
		return SQLiteProfile{}, fmt.Errorf("profile %q: sqlite driver not set", appEnv)
	}
	if p.Path == "" && p.DSN == "" {
		return SQLiteProfile{}, fmt.Errorf("profile %q: neither sqlite path nor dsn set", appEnv)
	}
	return p, nil
}

func parseI2CAddr(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid BAROMETER_ADDR %q: %w", s, err)
	}
	return uint16(n), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
