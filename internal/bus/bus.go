// Package bus carries control events and sensor payloads between the
// station's goroutines.
package bus

import (
	"fmt"
	"strings"

	"cloudpico-station/internal/modules/weather/types"
)

// Event is a payload-free signal.
type Event uint8

const (
	EventUnknown Event = iota
	EventSampleWindRain
	EventSampleTemperature
	EventSamplePressure
	EventAnemometerPulse
	EventRainPulse
	EventDayRollover
	EventExit
)

var eventNames = map[Event]string{
	EventUnknown:           "unknown",
	EventSampleWindRain:    "sample_wind_rain",
	EventSampleTemperature: "sample_temperature",
	EventSamplePressure:    "sample_pressure",
	EventAnemometerPulse:   "anemometer_pulse",
	EventRainPulse:         "rain_pulse",
	EventDayRollover:       "day_rollover",
	EventExit:              "exit",
}

func (e Event) String() string {
	if s, ok := eventNames[e]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

func ParseEvent(s string) (Event, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for e, n := range eventNames {
		if e != EventUnknown && n == name {
			return e, nil
		}
	}
	return EventUnknown, fmt.Errorf("unknown event %q", s)
}

// Bus pairs the event queue, consumed by the dispatch loop, with the payload
// queue, consumed by the aggregator. Order is FIFO within each queue only.
type Bus struct {
	Events   *Queue[Event]
	Payloads *Queue[types.Payload]
}

func New() *Bus {
	return &Bus{
		Events:   NewQueue[Event](),
		Payloads: NewQueue[types.Payload](),
	}
}

func (b *Bus) Close() {
	b.Events.Close()
	b.Payloads.Close()
}
