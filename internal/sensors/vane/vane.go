// Package vane resolves the wind vane's resistor ladder, read through an
// MCP3008, into a compass direction.
package vane

import (
	"fmt"
	"math"
	"time"

	"cloudpico-station/internal/modules/weather/types"
)

const sector = 22.5

// Ladder describes the vane's voltage divider.
type Ladder struct {
	Vin         float64
	RFixed      float64
	Resistances []float64
}

// DefaultLadder is the 16-position vane on a 3.3V divider with a 5.1k resistor.
var DefaultLadder = Ladder{
	Vin:    3.3,
	RFixed: 5100,
	Resistances: []float64{
		33000, 6570, 8200, 891, 1000, 688, 2200, 1410,
		3900, 3140, 16000, 14120, 120000, 42120, 64900, 21880,
	},
}

var labels = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Expected is the divider output for ladder position i.
func (l Ladder) Expected(i int) float64 {
	r := l.Resistances[i]
	return l.Vin * r / (r + l.RFixed)
}

// Raw is the ADC code an ideal 10-bit converter reports for position i.
func (l Ladder) Raw(i int, vref float64) uint16 {
	return uint16(math.Round(l.Expected(i) / vref * adcFullScale))
}

// Match returns the position whose expected voltage is nearest to v. On a
// tie the lowest index wins.
func (l Ladder) Match(v float64) int {
	best, bestDiff := 0, math.Inf(1)
	for i := range l.Resistances {
		if d := math.Abs(v - l.Expected(i)); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// Direction converts a ladder index into degrees in [0, 360).
func Direction(index int, calibration float64) float64 {
	deg := math.Mod(float64(index)*sector+calibration, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Label maps degrees onto the 16-point compass, each point centred on its
// heading.
func Label(deg float64) string {
	i := int(math.Floor(math.Mod(deg+sector/2, 360)/sector)) % len(labels)
	if i < 0 {
		i += len(labels)
	}
	return labels[i]
}

type Options struct {
	Channel     int
	Calibration float64
	Ladder      Ladder
	Now         func() time.Time
}

type Vane struct {
	adc         *MCP3008
	channel     int
	calibration float64
	ladder      Ladder
	now         func() time.Time
}

func New(adc *MCP3008, opts Options) *Vane {
	v := &Vane{
		adc:         adc,
		channel:     opts.Channel,
		calibration: opts.Calibration,
		ladder:      opts.Ladder,
		now:         opts.Now,
	}
	if len(v.ladder.Resistances) == 0 {
		v.ladder = DefaultLadder
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

func (v *Vane) Sample() (types.WindDirectionPayload, error) {
	raw, err := v.adc.Read(v.channel)
	if err != nil {
		return types.WindDirectionPayload{}, fmt.Errorf("vane: %w", err)
	}
	volts := v.adc.Volts(raw)
	idx := v.ladder.Match(volts)
	deg := Direction(idx, v.calibration)
	return types.WindDirectionPayload{Reading: types.WindDirection{
		Degrees: deg,
		Index:   idx,
		Label:   Label(deg),
		Volts:   volts,
		At:      v.now(),
	}}, nil
}
