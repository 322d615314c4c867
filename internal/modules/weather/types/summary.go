package types

import (
	"fmt"
	"strings"
	"time"

	"cloudpico-station/internal/units"
)

const (
	summaryTimeFormat = "02/01/2006 15:04:05"
	missing           = "--"
)

// Summary renders every sensor in the snapshot on its own line. Sensors that
// never sampled are shown as "--".
func Summary(s Snapshot) string {
	var b strings.Builder

	if r := s.Temperature; r.Valid() {
		fmt.Fprintf(&b, "temperature: %.1fC %.1fF %.1f%%RH (%s)\n",
			r.Celsius, units.CelsiusToFahrenheit(r.Celsius), r.Humidity, stamp(r.At))
	} else {
		fmt.Fprintf(&b, "temperature: %s\n", missing)
	}

	if r := s.Wind; r.Valid() {
		fmt.Fprintf(&b, "wind: %.1fmph %.1fkph (%s)\n",
			units.WindMPH(r.PulsesPerSec), units.WindKPH(r.PulsesPerSec), stamp(r.At))
	} else {
		fmt.Fprintf(&b, "wind: %s\n", missing)
	}

	if r := s.Direction; r.Valid() {
		fmt.Fprintf(&b, "direction: %.1f %s (%s)\n", r.Degrees, r.Label, stamp(r.At))
	} else {
		fmt.Fprintf(&b, "direction: %s\n", missing)
	}

	if r := s.Rain; r.Valid() {
		fmt.Fprintf(&b, "rain: %.2fin %.2fcm (%s)\n",
			units.RainInches(float64(r.Ticks)), units.RainCM(float64(r.Ticks)), stamp(r.At))
	} else {
		fmt.Fprintf(&b, "rain: %s\n", missing)
	}

	if r := s.Pressure; r.Valid() {
		fmt.Fprintf(&b, "pressure: %.1fhPa (%s)", r.HPa, stamp(r.At))
	} else {
		fmt.Fprintf(&b, "pressure: %s", missing)
	}

	return b.String()
}

func stamp(t time.Time) string {
	return t.UTC().Format(summaryTimeFormat)
}
