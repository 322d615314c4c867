package types

import "time"

// Temperature is a DHT reading. A zero At means the sensor never produced one.
type Temperature struct {
	Celsius  float64
	Humidity float64
	At       time.Time
}

func (r Temperature) Valid() bool { return !r.At.IsZero() }

// WindSpeed is stored in anemometer pulses per second; see units.WindKPH.
type WindSpeed struct {
	PulsesPerSec float64
	At           time.Time
}

func (r WindSpeed) Valid() bool { return !r.At.IsZero() }

type WindDirection struct {
	Degrees float64
	Index   int
	Label   string
	Volts   float64
	At      time.Time
}

func (r WindDirection) Valid() bool { return !r.At.IsZero() }

// Rain carries the rate over one sampling window, the ticks counted in that
// window, and the gauge's lifetime total.
type Rain struct {
	TicksPerSec   float64
	Ticks         uint64
	LifetimeTicks uint64
	At            time.Time
}

func (r Rain) Valid() bool { return !r.At.IsZero() }

type Pressure struct {
	HPa      float64
	Celsius  float64
	Humidity float64
	At       time.Time
}

func (r Pressure) Valid() bool { return !r.At.IsZero() }

// Snapshot holds the latest valid reading per sensor kind.
type Snapshot struct {
	Temperature Temperature
	Wind        WindSpeed
	Direction   WindDirection
	Rain        Rain
	Pressure    Pressure
}

// RainTotal is one closed day's rain, as handed to persistence.
type RainTotal struct {
	Day        time.Time
	Ticks      uint64
	Inches     float64
	RecordedAt time.Time
}
