package app

import (
	"fmt"
	"log/slog"
	"time"

	"cloudpico-station/internal/bus"
	"cloudpico-station/internal/config"
	"cloudpico-station/internal/dispatch"
	"cloudpico-station/internal/display"
	"cloudpico-station/internal/hardware"
	"cloudpico-station/internal/scheduler"
	"cloudpico-station/internal/sensors/barometer"
	"cloudpico-station/internal/sensors/dht"
	"cloudpico-station/internal/sensors/pulse"
	"cloudpico-station/internal/sensors/vane"
)

// station is everything built on top of the board before goroutines start.
type station struct {
	sensors   dispatch.Sensors
	scheduler *scheduler.Scheduler
	display   display.Display
	dhtSensor *dht.Sensor
	// dhtRunner is nil while a self-test owns the DHT line.
	dhtRunner *dht.Runner
}

func newStation(cfg config.Config, board *hardware.Board, b *bus.Bus, logger *slog.Logger) (*station, error) {
	if logger == nil {
		logger = slog.Default()
	}
	model, err := dht.ParseModel(cfg.DHT.Model)
	if err != nil {
		return nil, err
	}
	s := &station{
		dhtSensor: dht.New(board.DHT, dht.Options{Model: model}),
	}

	s.sensors = dispatch.Sensors{
		Anemometer: pulse.NewAnemometer(nil),
		Rain:       pulse.NewRainGauge(nil),
		Vane: vane.New(vane.NewMCP3008(board.ADC, cfg.Vane.VRef), vane.Options{
			Channel:     cfg.Vane.Channel,
			Calibration: cfg.Vane.Calibration,
		}),
	}
	if cfg.DHT.SelfTest > 0 {
		logger.Info("dht self-test mode", "reads", cfg.DHT.SelfTest, "interval", cfg.DHT.RetryInterval)
	} else {
		s.dhtRunner = dht.NewRunner(s.dhtSensor, b.Payloads, cfg.DHT.RetryInterval, logger)
		s.sensors.Temperature = s.dhtRunner
	}
	if board.Barometer != nil {
		s.sensors.Barometer = barometer.New(board.Barometer, nil)
	}

	s.scheduler, err = scheduler.New(jobs(cfg, board.Barometer != nil), b.Events, time.Now(), logger)
	if err != nil {
		return nil, err
	}

	if board.LCD == nil {
		s.display = display.NewLogDisplay(logger)
		return s, nil
	}
	lcd, err := display.NewHD44780(*board.LCD, cfg.Display.Cols, cfg.Display.Rows, nil)
	if err != nil {
		return nil, fmt.Errorf("lcd init: %w", err)
	}
	s.display = lcd
	return s, nil
}

func jobs(cfg config.Config, withPressure bool) []scheduler.Job {
	js := []scheduler.Job{
		{Name: "wind_rain", Spec: cfg.Schedule.WindRain, Event: bus.EventSampleWindRain},
		{Name: "temperature", Spec: cfg.Schedule.Temperature, Event: bus.EventSampleTemperature},
		{Name: "day_rollover", Spec: cfg.Schedule.Rollover, Event: bus.EventDayRollover},
	}
	if withPressure {
		js = append(js, scheduler.Job{Name: "pressure", Spec: cfg.Schedule.Pressure, Event: bus.EventSamplePressure})
	}
	return js
}
