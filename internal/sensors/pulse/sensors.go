package pulse

import (
	"sync/atomic"
	"time"

	"cloudpico-station/internal/modules/weather/types"
)

type Anemometer struct {
	counter *Counter
}

func NewAnemometer(now func() time.Time) *Anemometer {
	return &Anemometer{counter: NewCounter(now)}
}

func (a *Anemometer) Increment() { a.counter.Increment() }

func (a *Anemometer) Sample() types.WindSpeedPayload {
	w := a.counter.Sample()
	return types.WindSpeedPayload{Reading: types.WindSpeed{PulsesPerSec: w.Rate, At: w.At}}
}

// RainGauge counts bucket tips. Besides the per-window count it keeps a
// lifetime total that is never reset.
type RainGauge struct {
	counter  *Counter
	lifetime atomic.Uint64
}

func NewRainGauge(now func() time.Time) *RainGauge {
	return &RainGauge{counter: NewCounter(now)}
}

func (g *RainGauge) Increment() { g.counter.Increment() }

func (g *RainGauge) Lifetime() uint64 { return g.lifetime.Load() }

func (g *RainGauge) Sample() types.RainPayload {
	w := g.counter.Sample()
	total := g.lifetime.Add(w.Count)
	return types.RainPayload{Reading: types.Rain{
		TicksPerSec:   w.Rate,
		Ticks:         w.Count,
		LifetimeTicks: total,
		At:            w.At,
	}}
}
