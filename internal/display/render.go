package display

import (
	"fmt"
	"time"

	"cloudpico-station/internal/modules/weather/types"
	"cloudpico-station/internal/units"
)

// Page indexes, in rotation order.
const (
	PageTime = iota
	PageTemperature
	PageWind
	PageWindRange
	PageRain
	PageHealth
	NumPages
)

// View is everything a page may show.
type View struct {
	Now      time.Time
	Snapshot types.Snapshot
	Day      types.DayRollup
	Online   bool
	Uptime   time.Duration
}

const na = "n/a"

// Render formats one page as two lines separated by '\n'.
func Render(page int, v View) string {
	switch page {
	case PageTime:
		return fmt.Sprintf("%s\n%s", v.Now.Format("Mon Jan 2"), v.Now.Format("15:04:05"))

	case PageTemperature:
		t := v.Snapshot.Temperature
		if !t.Valid() {
			return "Temp " + na + "\nHumidity " + na
		}
		return fmt.Sprintf("Temp %.1fC %.1fF\nHumidity %.1f%%",
			t.Celsius, units.CelsiusToFahrenheit(t.Celsius), t.Humidity)

	case PageWind:
		line1 := "Wind " + na
		if w := v.Snapshot.Wind; w.Valid() {
			line1 = fmt.Sprintf("Wind %.1fmph", units.WindMPH(w.PulsesPerSec))
		}
		line2 := "Dir " + na
		if d := v.Snapshot.Direction; d.Valid() {
			line2 = fmt.Sprintf("Dir %s %.0f", d.Label, d.Degrees)
		}
		return line1 + "\n" + line2

	case PageWindRange:
		if !v.Day.HasWind() {
			return "Wind today\n" + na
		}
		return fmt.Sprintf("Wind today\n%.1f-%.1fmph",
			units.WindMPH(v.Day.WindMin), units.WindMPH(v.Day.WindMax))

	case PageRain:
		ticks := float64(v.Day.RainTicks)
		return fmt.Sprintf("Rain today\n%.2fin %.2fcm", units.RainInches(ticks), units.RainCM(ticks))

	case PageHealth:
		status := "offline"
		if v.Online {
			status = "online"
		}
		return fmt.Sprintf("Net %s\nUp %s", status, v.Uptime.Truncate(time.Second))

	default:
		return fmt.Sprintf("page %d\n%s", page, na)
	}
}
