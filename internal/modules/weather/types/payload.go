package types

import (
	"errors"
	"fmt"
)

var ErrUnknownPayload = errors.New("unknown payload")

// Payload is a sensor reading on its way to the aggregator. The set of
// variants is closed: only the types in this file implement it.
type Payload interface {
	Kind() string
	payload()
}

type TemperaturePayload struct{ Reading Temperature }

type WindSpeedPayload struct{ Reading WindSpeed }

type WindDirectionPayload struct{ Reading WindDirection }

// RainPayload adds Reading.Ticks to the day's cumulative rain.
type RainPayload struct{ Reading Rain }

type PressurePayload struct{ Reading Pressure }

func (TemperaturePayload) Kind() string   { return "temperature" }
func (WindSpeedPayload) Kind() string     { return "wind_speed" }
func (WindDirectionPayload) Kind() string { return "wind_direction" }
func (RainPayload) Kind() string          { return "rain" }
func (PressurePayload) Kind() string      { return "pressure" }

func (TemperaturePayload) payload()   {}
func (WindSpeedPayload) payload()     {}
func (WindDirectionPayload) payload() {}
func (RainPayload) payload()          {}
func (PressurePayload) payload()      {}

// Apply folds p into the snapshot and the current day.
func Apply(p Payload, s *Snapshot, d *DayRollup) error {
	switch p := p.(type) {
	case TemperaturePayload:
		s.Temperature = p.Reading
		d.AddTemperature(p.Reading.Celsius)
	case WindSpeedPayload:
		s.Wind = p.Reading
		d.AddWind(p.Reading.PulsesPerSec)
	case WindDirectionPayload:
		s.Direction = p.Reading
	case RainPayload:
		s.Rain = p.Reading
		d.AddRain(p.Reading.Ticks)
	case PressurePayload:
		s.Pressure = p.Reading
	default:
		return fmt.Errorf("%w: %T", ErrUnknownPayload, p)
	}
	return nil
}
