// Package units converts raw sensor rates and totals into physical units.
// Every function is pure so the same constants serve live rates and the
// daily totals that are only converted when read.
package units

import "math"

const (
	// AnemometerRadiusCM is the distance from the hub to the cup centre.
	AnemometerRadiusCM = 9.0
	// PulsesPerRotation is the number of switch closures per revolution.
	PulsesPerRotation = 2.0
	// WindAdjustment compensates for cup drag.
	WindAdjustment = 1.18

	cmPerKM     = 100000.0
	secondsPerH = 3600.0
	kmPerMile   = 1.609344

	// RainMMPerTick is the bucket volume of one tipping event.
	RainMMPerTick = 0.2794

	mmPerCM = 10.0
	cmPerIn = 2.54
)

// WindCMPerSec converts anemometer pulses per second to cup speed in cm/s.
func WindCMPerSec(pulsesPerSec float64) float64 {
	rotations := pulsesPerSec / PulsesPerRotation
	return rotations * 2 * math.Pi * AnemometerRadiusCM
}

// WindKPH converts anemometer pulses per second to wind speed in km/h.
func WindKPH(pulsesPerSec float64) float64 {
	return WindCMPerSec(pulsesPerSec) / cmPerKM * secondsPerH * WindAdjustment
}

// WindMPH converts anemometer pulses per second to wind speed in mph.
func WindMPH(pulsesPerSec float64) float64 {
	return WindKPH(pulsesPerSec) / kmPerMile
}

// RainMM converts bucket ticks (or ticks per second) to millimetres.
func RainMM(ticks float64) float64 {
	return ticks * RainMMPerTick
}

// RainCM converts bucket ticks to centimetres.
func RainCM(ticks float64) float64 {
	return RainMM(ticks) / mmPerCM
}

// RainInches converts bucket ticks to inches.
func RainInches(ticks float64) float64 {
	return RainCM(ticks) / cmPerIn
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
