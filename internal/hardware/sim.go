package hardware

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"cloudpico-station/internal/display"
	"cloudpico-station/internal/sensors/dht"
	"cloudpico-station/internal/sensors/vane"
)

// Weather is the simulated environment. Fields may be changed through
// SimBoard.SetWeather while the station runs.
type Weather struct {
	Celsius  float64
	Humidity float64
	HPa      float64
	// AnemometerHz is the switch closure rate; zero means calm.
	AnemometerHz float64
	// RainEvery is the bucket tip period; zero means dry.
	RainEvery time.Duration
	// VanePosition is the ladder index, 0 (N) to 15 (NNW).
	VanePosition int
}

func DefaultWeather() Weather {
	return Weather{
		Celsius:      18.5,
		Humidity:     62,
		HPa:          1013.2,
		AnemometerHz: 3,
		RainEvery:    90 * time.Second,
		VanePosition: 4,
	}
}

type SimOptions struct {
	Barometer bool
	LCD       bool
	// Jitter adds up to this much noise to temperature and humidity.
	Jitter float64
	Logger *slog.Logger
	Now    func() time.Time
	Sleep  func(time.Duration)
}

// SimBoard is a Board whose devices answer from a shared Weather.
type SimBoard struct {
	*Board

	mu      sync.RWMutex
	weather Weather
	jitter  float64
}

func NewSimBoard(w Weather, opts SimOptions) *SimBoard {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	s := &SimBoard{weather: w, jitter: opts.Jitter}

	b := &Board{
		DHT: &simDHTLine{read: s.dhtFrame},
		Anemometer: &simEdgePin{
			period: func() time.Duration { return hzPeriod(s.Weather().AnemometerHz) },
			now:    opts.Now,
			sleep:  opts.Sleep,
		},
		Rain: &simEdgePin{
			period: func() time.Duration { return s.Weather().RainEvery },
			now:    opts.Now,
			sleep:  opts.Sleep,
		},
		ADC: &simADC{position: func() int { return s.Weather().VanePosition }},
	}
	if opts.Barometer {
		b.Barometer = &simBarometer{weather: s.Weather}
	}
	if opts.LCD {
		b.LCD = &display.LCDPins{
			RS: simPin{}, E: simPin{},
			D4: simPin{}, D5: simPin{}, D6: simPin{}, D7: simPin{},
		}
	}
	s.Board = b
	return s
}

func (s *SimBoard) Weather() Weather {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weather
}

func (s *SimBoard) SetWeather(w Weather) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weather = w
}

func (s *SimBoard) dhtFrame() [5]byte {
	w := s.Weather()
	h, c := w.Humidity, w.Celsius
	if s.jitter > 0 {
		h += (rand.Float64()*2 - 1) * s.jitter
		c += (rand.Float64()*2 - 1) * s.jitter
	}
	return dht.Encode(h, c)
}

func hzPeriod(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

type segment struct {
	level gpio.Level
	polls int
}

// simDHTLine answers each start signal with a freshly encoded frame,
// one level per poll.
type simDHTLine struct {
	read     func() [5]byte
	script   []segment
	released bool
	seg      int
	pos      int
}

func (l *simDHTLine) Out(gpio.Level) error {
	l.released = false
	return nil
}

func (l *simDHTLine) In(gpio.Pull, gpio.Edge) error {
	l.script = dhtWaveform(l.read())
	l.released = true
	l.seg, l.pos = 0, 0
	return nil
}

func (l *simDHTLine) Read() gpio.Level {
	if !l.released {
		return gpio.High
	}
	for l.seg < len(l.script) && l.pos >= l.script[l.seg].polls {
		l.seg++
		l.pos = 0
	}
	if l.seg >= len(l.script) {
		return gpio.High
	}
	l.pos++
	return l.script[l.seg].level
}

// dhtWaveform is the sensor's response to a start signal, measured in polls:
// 26 for a zero and 70 for a one after each 50-poll low gap.
func dhtWaveform(frame [5]byte) []segment {
	s := make([]segment, 0, 3+2*8*len(frame)+1)
	s = append(s, segment{gpio.High, 4}, segment{gpio.Low, 80}, segment{gpio.High, 80})
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			high := 26
			if b&(1<<bit) != 0 {
				high = 70
			}
			s = append(s, segment{gpio.Low, 50}, segment{gpio.High, high})
		}
	}
	return append(s, segment{gpio.Low, 50})
}

// simEdgePin fires a rising edge every period.
type simEdgePin struct {
	period func() time.Duration
	now    func() time.Time
	sleep  func(time.Duration)
	next   time.Time
}

func (p *simEdgePin) In(gpio.Pull, gpio.Edge) error {
	p.next = time.Time{}
	return nil
}

func (p *simEdgePin) WaitForEdge(timeout time.Duration) bool {
	period := p.period()
	if period <= 0 {
		p.next = time.Time{}
		p.sleep(timeout)
		return false
	}
	now := p.now()
	if p.next.IsZero() || p.next.Sub(now) > period {
		p.next = now.Add(period)
	}
	wait := p.next.Sub(now)
	if wait > timeout {
		p.sleep(timeout)
		return false
	}
	if wait > 0 {
		p.sleep(wait)
	}
	p.next = p.next.Add(period)
	return true
}

var errSimFrame = errors.New("sim mcp3008: malformed transfer")

// simADC answers MCP3008 single-ended reads with the vane ladder's ideal code.
type simADC struct {
	position func() int
}

func (a *simADC) Tx(w, r []byte) error {
	if len(w) != 3 || len(r) != 3 || w[0] != 0x01 || w[1]&0x80 == 0 {
		return errSimFrame
	}
	pos := a.position()
	if pos < 0 || pos >= len(vane.DefaultLadder.Resistances) {
		pos = 0
	}
	raw := vane.DefaultLadder.Raw(pos, vane.DefaultLadder.Vin)
	r[0] = 0
	r[1] = byte(raw>>8) & 0x03
	r[2] = byte(raw)
	return nil
}

type simBarometer struct {
	weather func() Weather
}

func (b *simBarometer) Sense(env *physic.Env) error {
	w := b.weather()
	env.Pressure = physic.Pressure(w.HPa * float64(100*physic.Pascal))
	env.Temperature = physic.ZeroCelsius + physic.Temperature(w.Celsius*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(w.Humidity * float64(physic.PercentRH))
	return nil
}

type simPin struct{}

func (simPin) Out(gpio.Level) error { return nil }
