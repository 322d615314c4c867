package controller

import (
	"time"

	"cloudpico-station/internal/modules/weather/types"
	"cloudpico-station/internal/units"
)

type windJSON struct {
	MPH         float64   `json:"mph"`
	KPH         float64   `json:"kph"`
	LastUpdated time.Time `json:"last_updated"`
}

type windDirJSON struct {
	Dir         float64   `json:"dir"`
	Label       string    `json:"label"`
	LastUpdated time.Time `json:"last_updated"`
}

type tempJSON struct {
	TempF       float64   `json:"temp_f"`
	TempC       float64   `json:"temp_c"`
	Humidity    float64   `json:"humidity"`
	LastUpdated time.Time `json:"last_updated"`
}

type rainJSON struct {
	AmountIn    float64   `json:"amnt_in"`
	AmountCM    float64   `json:"amnt_cm"`
	LastUpdated time.Time `json:"last_updated"`
}

type pressureJSON struct {
	HPa         float64   `json:"hpa"`
	LastUpdated time.Time `json:"last_updated"`
}

// latestJSON leaves a sensor null until it has sampled.
type latestJSON struct {
	Wind     *windJSON     `json:"wind"`
	WindDir  *windDirJSON  `json:"wind_dir"`
	Temp     *tempJSON     `json:"temp"`
	Rain     *rainJSON     `json:"rain"`
	Pressure *pressureJSON `json:"pressure"`
}

func newLatestJSON(s types.Snapshot) latestJSON {
	var out latestJSON
	if w := s.Wind; w.Valid() {
		out.Wind = &windJSON{
			MPH:         units.WindMPH(w.PulsesPerSec),
			KPH:         units.WindKPH(w.PulsesPerSec),
			LastUpdated: w.At,
		}
	}
	if d := s.Direction; d.Valid() {
		out.WindDir = &windDirJSON{Dir: d.Degrees, Label: d.Label, LastUpdated: d.At}
	}
	if t := s.Temperature; t.Valid() {
		out.Temp = &tempJSON{
			TempF:       units.CelsiusToFahrenheit(t.Celsius),
			TempC:       t.Celsius,
			Humidity:    t.Humidity,
			LastUpdated: t.At,
		}
	}
	if r := s.Rain; r.Valid() {
		ticks := float64(r.Ticks)
		out.Rain = &rainJSON{
			AmountIn:    units.RainInches(ticks),
			AmountCM:    units.RainCM(ticks),
			LastUpdated: r.At,
		}
	}
	if p := s.Pressure; p.Valid() {
		out.Pressure = &pressureJSON{HPa: p.HPa, LastUpdated: p.At}
	}
	return out
}

type dayRainJSON struct {
	Ticks    uint64  `json:"ticks"`
	AmountIn float64 `json:"amnt_in"`
	AmountCM float64 `json:"amnt_cm"`
}

type dayWindJSON struct {
	MinMPH float64 `json:"min_mph"`
	MaxMPH float64 `json:"max_mph"`
	MinKPH float64 `json:"min_kph"`
	MaxKPH float64 `json:"max_kph"`
}

type dayTempJSON struct {
	HighC   float64 `json:"high_c"`
	LowC    float64 `json:"low_c"`
	AvgC    float64 `json:"avg_c"`
	HighF   float64 `json:"high_f"`
	LowF    float64 `json:"low_f"`
	AvgF    float64 `json:"avg_f"`
	Samples int     `json:"samples"`
}

type daytimeJSON struct {
	Date string       `json:"date"`
	Rain dayRainJSON  `json:"rain"`
	Wind *dayWindJSON `json:"wind"`
	Temp *dayTempJSON `json:"temp"`
	Prev *daytimeJSON `json:"prev"`
}

func newDaytimeJSON(d types.DayRollup) daytimeJSON {
	ticks := float64(d.RainTicks)
	out := daytimeJSON{
		Date: d.Date.Format(time.DateOnly),
		Rain: dayRainJSON{
			Ticks:    d.RainTicks,
			AmountIn: units.RainInches(ticks),
			AmountCM: units.RainCM(ticks),
		},
	}
	if d.HasWind() {
		out.Wind = &dayWindJSON{
			MinMPH: units.WindMPH(d.WindMin),
			MaxMPH: units.WindMPH(d.WindMax),
			MinKPH: units.WindKPH(d.WindMin),
			MaxKPH: units.WindKPH(d.WindMax),
		}
	}
	if avg, ok := d.TempAverage(); ok {
		out.Temp = &dayTempJSON{
			HighC:   d.TempHigh,
			LowC:    d.TempLow,
			AvgC:    avg,
			HighF:   units.CelsiusToFahrenheit(d.TempHigh),
			LowF:    units.CelsiusToFahrenheit(d.TempLow),
			AvgF:    units.CelsiusToFahrenheit(avg),
			Samples: d.TempSamples,
		}
	}
	if d.Prev != nil {
		prev := newDaytimeJSON(*d.Prev)
		out.Prev = &prev
	}
	return out
}
