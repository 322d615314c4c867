// Package dht reads DHT11/DHT22 temperature and humidity sensors over a
// single-wire bit-banged protocol.
package dht

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"cloudpico-station/internal/modules/weather/types"
)

var (
	ErrTimeout  = errors.New("dht: timeout waiting for line transition")
	ErrChecksum = errors.New("dht: checksum mismatch")
)

// Model selects the start-signal hold time.
type Model int

const (
	DHT11 Model = iota
	DHT22
)

func ParseModel(s string) (Model, error) {
	switch s {
	case "dht11", "DHT11":
		return DHT11, nil
	case "dht22", "DHT22", "am2302", "AM2302":
		return DHT22, nil
	default:
		return DHT11, fmt.Errorf("unknown dht model %q (allowed: dht11, dht22)", s)
	}
}

func (m Model) String() string {
	if m == DHT22 {
		return "dht22"
	}
	return "dht11"
}

func (m Model) wakeDelay() time.Duration {
	if m == DHT22 {
		return 1 * time.Millisecond
	}
	return 18 * time.Millisecond
}

const (
	// DefaultMaxPolls bounds every wait loop: clock rate / 40 kHz.
	DefaultMaxPolls = 1_500_000_000 / 40_000

	// pulsePairs is the response pair followed by 40 data bits.
	pulsePairs = 41
	frameBytes = 5
)

// Line is the single data wire. gpio.PinIO satisfies it.
type Line interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

type Options struct {
	Model    Model
	MaxPolls int
	// Sleep holds the line during the start signal. Defaults to time.Sleep.
	Sleep func(time.Duration)
	Now   func() time.Time
}

type Sensor struct {
	line     Line
	model    Model
	maxPolls int
	sleep    func(time.Duration)
	now      func() time.Time
}

func New(line Line, opts Options) *Sensor {
	s := &Sensor{
		line:     line,
		model:    opts.Model,
		maxPolls: opts.MaxPolls,
		sleep:    opts.Sleep,
		now:      opts.Now,
	}
	if s.maxPolls <= 0 {
		s.maxPolls = DefaultMaxPolls
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Read performs one complete exchange with the sensor.
func (s *Sensor) Read() (types.Temperature, error) {
	frame, err := s.readFrame()
	if err != nil {
		return types.Temperature{}, err
	}
	humidity, celsius, err := Decode(frame)
	if err != nil {
		return types.Temperature{}, err
	}
	return types.Temperature{Celsius: celsius, Humidity: humidity, At: s.now()}, nil
}

func (s *Sensor) startSignal() error {
	if err := s.line.Out(gpio.High); err != nil {
		return fmt.Errorf("dht: drive high: %w", err)
	}
	s.sleep(100 * time.Millisecond)
	if err := s.line.Out(gpio.Low); err != nil {
		return fmt.Errorf("dht: drive low: %w", err)
	}
	s.sleep(s.model.wakeDelay() + 2*time.Millisecond)
	if err := s.line.Out(gpio.High); err != nil {
		return fmt.Errorf("dht: drive high: %w", err)
	}
	s.sleep(30 * time.Microsecond)
	if err := s.line.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("dht: release line: %w", err)
	}
	return nil
}

func (s *Sensor) readFrame() ([frameBytes]byte, error) {
	var frame [frameBytes]byte
	if err := s.startSignal(); err != nil {
		return frame, err
	}

	// Idle high until the sensor pulls the line low to answer.
	if _, err := s.measure(gpio.High); err != nil {
		return frame, fmt.Errorf("%w: no response", err)
	}

	var lows, highs [pulsePairs]int
	for i := 0; i < pulsePairs; i++ {
		var err error
		if lows[i], err = s.measure(gpio.Low); err != nil {
			return frame, fmt.Errorf("%w: low pulse %d", err, i)
		}
		if highs[i], err = s.measure(gpio.High); err != nil {
			return frame, fmt.Errorf("%w: high pulse %d", err, i)
		}
	}

	for bit := 0; bit < 8*frameBytes; bit++ {
		frame[bit/8] <<= 1
		// A one holds the line high longer than the low gap that precedes it.
		if highs[bit+1] > lows[bit+1] {
			frame[bit/8] |= 1
		}
	}
	return frame, nil
}

// measure counts polls while the line stays at level.
func (s *Sensor) measure(level gpio.Level) (int, error) {
	n := 0
	for s.line.Read() == level {
		n++
		if n >= s.maxPolls {
			return n, ErrTimeout
		}
	}
	return n, nil
}

// Decode validates a raw frame and returns humidity (%RH) and temperature (C).
func Decode(frame [frameBytes]byte) (humidity, celsius float64, err error) {
	sum := uint16(frame[0]) + uint16(frame[1]) + uint16(frame[2]) + uint16(frame[3])
	if byte(sum) != frame[4] {
		return 0, 0, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, frame[4], byte(sum))
	}
	humidity = float64(uint16(frame[0])<<8|uint16(frame[1])) * 0.1
	celsius = float64(uint16(frame[2])<<8|uint16(frame[3])) * 0.1
	return humidity, celsius, nil
}

// Encode builds a frame with a valid checksum. Negative values clamp to zero.
func Encode(humidity, celsius float64) [frameBytes]byte {
	humidity, celsius = max(humidity, 0), max(celsius, 0)
	h := uint16(humidity*10 + 0.5)
	c := uint16(celsius*10 + 0.5)
	f := [frameBytes]byte{byte(h >> 8), byte(h), byte(c >> 8), byte(c)}
	f[4] = f[0] + f[1] + f[2] + f[3]
	return f
}
