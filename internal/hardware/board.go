// Package hardware opens the station's pins and buses, either through periph
// on a real board or as an in-process simulation.
package hardware

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/display"
	"cloudpico-station/internal/sensors/barometer"
	"cloudpico-station/internal/sensors/dht"
	"cloudpico-station/internal/sensors/pulse"
	"cloudpico-station/internal/sensors/vane"
)

const (
	BackendPeriph = "periph"
	BackendSim    = "sim"

	// MCP3008 is rated to 1.35MHz at 2.7V.
	adcClock = physic.MegaHertz
)

var ErrUnknownBackend = errors.New("hardware: unknown backend")

// Board hands each pin and bus handle to exactly one driver.
type Board struct {
	DHT        dht.Line
	Anemometer pulse.EdgePin
	Rain       pulse.EdgePin
	ADC        vane.Conn
	// Barometer is nil unless enabled.
	Barometer barometer.Device
	// LCD is nil unless enabled.
	LCD *display.LCDPins

	closers []func() error
}

// Open returns the board selected by cfg.Hardware.
func Open(cfg config.Config, logger *slog.Logger) (*Board, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Hardware {
	case BackendPeriph:
		b, err := openPeriph(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("hardware ready", "backend", BackendPeriph,
			"dht_pin", cfg.DHT.Pin,
			"anemometer_pin", cfg.Pulse.AnemometerPin,
			"rain_pin", cfg.Pulse.RainPin,
			"barometer", cfg.Barometer.Enabled,
			"lcd", cfg.Display.Enabled,
		)
		return b, nil
	case BackendSim:
		logger.Info("hardware ready", "backend", BackendSim)
		return NewSimBoard(DefaultWeather(), SimOptions{
			Barometer: cfg.Barometer.Enabled,
			LCD:       cfg.Display.Enabled,
			Logger:    logger,
		}).Board, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Hardware)
	}
}

func openPeriph(cfg config.Config) (_ *Board, err error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hardware: host init: %w", err)
	}

	b := &Board{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	if b.DHT, err = pinByName("dht", cfg.DHT.Pin); err != nil {
		return nil, err
	}
	if b.Anemometer, err = pinByName("anemometer", cfg.Pulse.AnemometerPin); err != nil {
		return nil, err
	}
	if b.Rain, err = pinByName("rain", cfg.Pulse.RainPin); err != nil {
		return nil, err
	}

	port, err := spireg.Open(cfg.Vane.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("hardware: open spi %q: %w", cfg.Vane.SPIPort, err)
	}
	b.closers = append(b.closers, port.Close)
	conn, err := port.Connect(adcClock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("hardware: connect mcp3008: %w", err)
	}
	b.ADC = conn

	if cfg.Barometer.Enabled {
		bus, err := i2creg.Open(cfg.Barometer.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("hardware: open i2c %q: %w", cfg.Barometer.I2CBus, err)
		}
		b.closers = append(b.closers, bus.Close)
		dev, err := barometer.OpenI2C(bus, cfg.BarometerAddr)
		if err != nil {
			return nil, fmt.Errorf("hardware: %w", err)
		}
		b.closers = append(b.closers, dev.Halt)
		b.Barometer = dev
	}

	if cfg.Display.Enabled {
		lcd, err := lcdPins(cfg.Display)
		if err != nil {
			return nil, err
		}
		b.LCD = lcd
	}
	return b, nil
}

func lcdPins(cfg config.DisplayConfig) (*display.LCDPins, error) {
	names := []struct {
		role, name string
	}{
		{"lcd rs", cfg.RS}, {"lcd e", cfg.E},
		{"lcd d4", cfg.D4}, {"lcd d5", cfg.D5}, {"lcd d6", cfg.D6}, {"lcd d7", cfg.D7},
	}
	pins := make([]display.Pin, len(names))
	for i, n := range names {
		p, err := pinByName(n.role, n.name)
		if err != nil {
			return nil, err
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("hardware: %s %s: %w", n.role, n.name, err)
		}
		pins[i] = p
	}
	return &display.LCDPins{
		RS: pins[0], E: pins[1],
		D4: pins[2], D5: pins[3], D6: pins[4], D7: pins[5],
	}, nil
}

func pinByName(role, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hardware: %s pin %q not found", role, name)
	}
	return p, nil
}

// Close releases buses in reverse order of acquisition.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
