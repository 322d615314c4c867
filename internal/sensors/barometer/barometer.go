// Package barometer samples a BME280 for pressure.
package barometer

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"cloudpico-station/internal/modules/weather/types"
)

// Device is the sensing half of *bmxx80.Dev.
type Device interface {
	Sense(env *physic.Env) error
}

type Barometer struct {
	dev Device
	now func() time.Time
}

func New(dev Device, now func() time.Time) *Barometer {
	if now == nil {
		now = time.Now
	}
	return &Barometer{dev: dev, now: now}
}

// OpenI2C attaches to a BME280 at addr on bus.
func OpenI2C(bus i2c.Bus, addr uint16) (*bmxx80.Dev, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80 at %#x: %w", addr, err)
	}
	return dev, nil
}

func (b *Barometer) Sample() (types.PressurePayload, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return types.PressurePayload{}, fmt.Errorf("barometer: sense: %w", err)
	}
	return types.PressurePayload{Reading: types.Pressure{
		HPa:      HPa(env.Pressure),
		Celsius:  env.Temperature.Celsius(),
		Humidity: float64(env.Humidity) / float64(physic.PercentRH),
		At:       b.now(),
	}}, nil
}

// HPa converts periph's nano-pascal pressure to hectopascal.
func HPa(p physic.Pressure) float64 {
	return float64(p) / float64(100*physic.Pascal)
}
