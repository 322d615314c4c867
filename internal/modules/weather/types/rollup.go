package types

import (
	"time"

	"cloudpico-station/internal/units"
)

// windUnset marks a wind extreme with no reading yet today. Zero is a valid
// calm reading.
const windUnset = -1

// DayRollup accumulates statistics for one calendar day.
type DayRollup struct {
	Date time.Time

	RainTicks uint64

	// Wind extremes in pulses per second, -1 until the first reading.
	WindMin float64
	WindMax float64

	TempHigh    float64
	TempLow     float64
	TempSum     float64
	TempSamples int

	// Prev is the day closed by the most recent rollover, nil after startup.
	Prev *DayRollup
}

// NewDayRollup starts an empty day. prev is detached from its own history so
// the chain never grows past one closed day.
func NewDayRollup(date time.Time, prev *DayRollup) DayRollup {
	d := DayRollup{
		Date:    StartOfDay(date),
		WindMin: windUnset,
		WindMax: windUnset,
	}
	if prev != nil {
		closed := *prev
		closed.Prev = nil
		d.Prev = &closed
	}
	return d
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (d *DayRollup) AddWind(pulsesPerSec float64) {
	if d.WindMin < 0 || pulsesPerSec < d.WindMin {
		d.WindMin = pulsesPerSec
	}
	if d.WindMax < 0 || pulsesPerSec > d.WindMax {
		d.WindMax = pulsesPerSec
	}
}

func (d *DayRollup) AddTemperature(celsius float64) {
	if d.TempSamples == 0 || celsius > d.TempHigh {
		d.TempHigh = celsius
	}
	if d.TempSamples == 0 || celsius < d.TempLow {
		d.TempLow = celsius
	}
	d.TempSum += celsius
	d.TempSamples++
}

func (d *DayRollup) AddRain(ticks uint64) {
	d.RainTicks += ticks
}

func (d DayRollup) HasWind() bool { return d.WindMin >= 0 }

func (d DayRollup) HasTemperature() bool { return d.TempSamples > 0 }

// TempAverage returns the running mean, false when no temperature arrived today.
func (d DayRollup) TempAverage() (float64, bool) {
	if d.TempSamples == 0 {
		return 0, false
	}
	return d.TempSum / float64(d.TempSamples), true
}

// Clone returns a copy that shares no memory with d.
func (d DayRollup) Clone() DayRollup {
	if d.Prev != nil {
		prev := *d.Prev
		d.Prev = &prev
	}
	return d
}

// RainTotal summarises the day for persistence.
func (d DayRollup) RainTotal(recordedAt time.Time) RainTotal {
	return RainTotal{
		Day:        d.Date,
		Ticks:      d.RainTicks,
		Inches:     units.RainInches(float64(d.RainTicks)),
		RecordedAt: recordedAt,
	}
}
