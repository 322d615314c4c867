package pulse

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// EdgePin is the input side of a periph gpio.PinIn.
type EdgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
}

// pollTimeout bounds each WaitForEdge so cancellation is noticed.
const pollTimeout = 250 * time.Millisecond

// Watch arms pin for rising edges and calls onEdge for every edge that is at
// least debounce after the previous accepted one. onEdge runs on the watcher
// goroutine and must not block.
func Watch(ctx context.Context, pin EdgePin, debounce time.Duration, onEdge func()) error {
	if err := pin.In(gpio.PullUp, gpio.RisingEdge); err != nil {
		return fmt.Errorf("pulse: arm edge detection: %w", err)
	}

	var last time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !pin.WaitForEdge(pollTimeout) {
			continue
		}
		if debounce > 0 {
			now := time.Now()
			if !last.IsZero() && now.Sub(last) < debounce {
				continue
			}
			last = now
		}
		onEdge()
	}
}
