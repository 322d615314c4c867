// Package dispatch runs the station's main event loop: it ticks the
// scheduler, drains control events and asks the right sensor for a reading.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloudpico-station/internal/bus"
	"cloudpico-station/internal/modules/weather/types"
	"cloudpico-station/internal/sensors/barometer"
	"cloudpico-station/internal/sensors/pulse"
	"cloudpico-station/internal/sensors/vane"
)

// ErrExit is returned by Run after an exit event.
var ErrExit = errors.New("exit requested")

type Ticker interface {
	Tick(now time.Time) int
}

// Trigger starts an asynchronous read, such as dht.Runner.
type Trigger interface {
	Trigger()
}

// Sensors are owned by the dispatcher for the lifetime of the loop. Vane,
// Temperature and Barometer may be nil.
type Sensors struct {
	Anemometer  *pulse.Anemometer
	Rain        *pulse.RainGauge
	Vane        *vane.Vane
	Temperature Trigger
	Barometer   *barometer.Barometer
}

type Options struct {
	Events    *bus.Queue[bus.Event]
	Payloads  *bus.Queue[types.Payload]
	Scheduler Ticker
	Sensors   Sensors
	// Rollover receives day-rollover events for the aggregator.
	Rollover   func(bus.Event)
	TickPeriod time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type Dispatcher struct {
	events    *bus.Queue[bus.Event]
	payloads  *bus.Queue[types.Payload]
	scheduler Ticker
	sensors   Sensors
	rollover  func(bus.Event)
	period    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		events:    opts.Events,
		payloads:  opts.Payloads,
		scheduler: opts.Scheduler,
		sensors:   opts.Sensors,
		rollover:  opts.Rollover,
		period:    opts.TickPeriod,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if d.period <= 0 {
		d.period = 100 * time.Millisecond
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Run loops until ctx is done or an exit event arrives.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if d.scheduler != nil {
				d.scheduler.Tick(d.now())
			}
		case <-d.events.Ready():
		}
		if err := d.Drain(); err != nil {
			return err
		}
	}
}

// Drain handles every pending event in arrival order. It returns ErrExit
// after handling an exit event; events queued behind it are left in place.
func (d *Dispatcher) Drain() error {
	for {
		ev, ok := d.events.TryReceive()
		if !ok {
			return nil
		}
		if ev == bus.EventExit {
			d.logger.Info("exit event received")
			return ErrExit
		}
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev bus.Event) {
	switch ev {
	case bus.EventAnemometerPulse:
		d.sensors.Anemometer.Increment()
	case bus.EventRainPulse:
		d.sensors.Rain.Increment()
	case bus.EventSampleWindRain:
		d.sampleWindRain()
	case bus.EventSampleTemperature:
		if d.sensors.Temperature != nil {
			d.sensors.Temperature.Trigger()
		}
	case bus.EventSamplePressure:
		d.samplePressure()
	case bus.EventDayRollover:
		if d.rollover != nil {
			d.rollover(ev)
		}
	default:
		d.logger.Warn("unhandled event", "event", ev.String())
	}
}

func (d *Dispatcher) sampleWindRain() {
	wind := d.sensors.Anemometer.Sample()
	d.payloads.Publish(wind)

	rain := d.sensors.Rain.Sample()
	d.payloads.Publish(rain)

	d.logger.Debug("sampled wind and rain",
		"pulses_per_sec", wind.Reading.PulsesPerSec,
		"rain_ticks", rain.Reading.Ticks,
	)

	if d.sensors.Vane == nil {
		return
	}
	dir, err := d.sensors.Vane.Sample()
	if err != nil {
		d.logger.Warn("wind vane sample failed", "error", err)
		return
	}
	d.payloads.Publish(dir)
}

func (d *Dispatcher) samplePressure() {
	if d.sensors.Barometer == nil {
		return
	}
	p, err := d.sensors.Barometer.Sample()
	if err != nil {
		d.logger.Warn("barometer sample failed", "error", err)
		return
	}
	d.payloads.Publish(p)
}
