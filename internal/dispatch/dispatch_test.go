package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"cloudpico-station/internal/bus"
	"cloudpico-station/internal/modules/weather/types"
	"cloudpico-station/internal/sensors/barometer"
	"cloudpico-station/internal/sensors/pulse"
	"cloudpico-station/internal/sensors/vane"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() { c.n.Add(1) }

type adcConn struct{ raw uint16 }

func (c adcConn) Tx(w, r []byte) error {
	r[1] = byte(c.raw>>8) & 0x03
	r[2] = byte(c.raw)
	return nil
}

type pressureDev struct{}

func (pressureDev) Sense(env *physic.Env) error {
	env.Pressure = 100000 * physic.Pascal
	return nil
}

type fixture struct {
	d         *Dispatcher
	events    *bus.Queue[bus.Event]
	payloads  *bus.Queue[types.Payload]
	clock     *clock
	trigger   *countingTrigger
	rollovers []bus.Event
}

func newFixture() *fixture {
	f := &fixture{
		events:   bus.NewQueue[bus.Event](),
		payloads: bus.NewQueue[types.Payload](),
		clock:    &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		trigger:  &countingTrigger{},
	}
	adc := vane.NewMCP3008(adcConn{raw: vane.DefaultLadder.Raw(8, 3.3)}, 3.3)
	f.d = New(Options{
		Events:   f.events,
		Payloads: f.payloads,
		Sensors: Sensors{
			Anemometer:  pulse.NewAnemometer(f.clock.Now),
			Rain:        pulse.NewRainGauge(f.clock.Now),
			Vane:        vane.New(adc, vane.Options{Now: f.clock.Now}),
			Temperature: f.trigger,
			Barometer:   barometer.New(pressureDev{}, f.clock.Now),
		},
		Rollover: func(ev bus.Event) { f.rollovers = append(f.rollovers, ev) },
		Now:      f.clock.Now,
	})
	return f
}

func TestDrain_PulsesThenSample(t *testing.T) {
	f := newFixture()
	for i := 0; i < 3; i++ {
		f.events.Publish(bus.EventRainPulse)
	}
	for i := 0; i < 4; i++ {
		f.events.Publish(bus.EventAnemometerPulse)
	}
	if err := f.d.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	f.clock.t = f.clock.t.Add(time.Second)
	f.events.Publish(bus.EventSampleWindRain)
	if err := f.d.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	got := f.payloads.Drain()
	if len(got) != 3 {
		t.Fatalf("payloads = %d, want wind, rain and direction", len(got))
	}
	wind, ok := got[0].(types.WindSpeedPayload)
	if !ok || wind.Reading.PulsesPerSec != 4 {
		t.Errorf("payload[0] = %+v, want wind at 4 pulses/s", got[0])
	}
	rain, ok := got[1].(types.RainPayload)
	if !ok || rain.Reading.TicksPerSec != 3 || rain.Reading.Ticks != 3 {
		t.Errorf("payload[1] = %+v, want rain with 3 ticks at 3/s", got[1])
	}
	dir, ok := got[2].(types.WindDirectionPayload)
	if !ok || dir.Reading.Label != "S" {
		t.Errorf("payload[2] = %+v, want direction S", got[2])
	}
}

func TestDrain_RoutesRequests(t *testing.T) {
	f := newFixture()
	f.events.Publish(bus.EventSampleTemperature)
	f.events.Publish(bus.EventSampleTemperature)
	f.events.Publish(bus.EventSamplePressure)
	f.events.Publish(bus.EventDayRollover)
	f.events.Publish(bus.EventUnknown)

	if err := f.d.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n := f.trigger.n.Load(); n != 2 {
		t.Errorf("temperature triggers = %d, want 2", n)
	}
	if len(f.rollovers) != 1 || f.rollovers[0] != bus.EventDayRollover {
		t.Errorf("rollovers = %v, want one day_rollover", f.rollovers)
	}
	got := f.payloads.Drain()
	if len(got) != 1 {
		t.Fatalf("payloads = %d, want 1 pressure", len(got))
	}
	if p, ok := got[0].(types.PressurePayload); !ok || p.Reading.HPa != 1000 {
		t.Errorf("payload = %+v, want 1000 hPa", got[0])
	}
}

func TestDrain_ExitStopsProcessing(t *testing.T) {
	f := newFixture()
	f.events.Publish(bus.EventSampleTemperature)
	f.events.Publish(bus.EventExit)
	f.events.Publish(bus.EventSampleTemperature)

	if err := f.d.Drain(); !errors.Is(err, ErrExit) {
		t.Fatalf("Drain err = %v, want ErrExit", err)
	}
	if n := f.trigger.n.Load(); n != 1 {
		t.Errorf("temperature triggers = %d, want 1", n)
	}
	if f.events.Len() != 1 {
		t.Errorf("events left = %d, want 1", f.events.Len())
	}
}

type exitTicker struct {
	events *bus.Queue[bus.Event]
	ticks  atomic.Int32
}

func (e *exitTicker) Tick(time.Time) int {
	if e.ticks.Add(1) == 3 {
		e.events.Publish(bus.EventExit)
		return 1
	}
	return 0
}

func TestRun_ExitFromScheduler(t *testing.T) {
	f := newFixture()
	ticker := &exitTicker{events: f.events}
	f.d.scheduler = ticker
	f.d.period = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.d.Run(ctx); !errors.Is(err, ErrExit) {
		t.Fatalf("Run err = %v, want ErrExit", err)
	}
	if ticker.ticks.Load() < 3 {
		t.Errorf("ticks = %d, want at least 3", ticker.ticks.Load())
	}
}

func TestRun_ContextCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want Canceled", err)
	}
}
