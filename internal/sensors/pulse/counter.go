// Package pulse turns switch closures from the anemometer and the rain gauge
// into rates.
package pulse

import (
	"sync"
	"sync/atomic"
	"time"
)

// Window is the outcome of one sampling period.
type Window struct {
	Count   uint64
	Elapsed time.Duration
	Rate    float64 // pulses per second
	At      time.Time
}

// Counter counts edges between samples. Increment may run concurrently with
// Sample: the count is swapped out atomically so an edge lands in exactly one
// window.
type Counter struct {
	count atomic.Uint64

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewCounter(now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{now: now, last: now()}
}

func (c *Counter) Increment() {
	c.count.Add(1)
}

// Sample returns the rate since the previous sample and starts a new window.
func (c *Counter) Sample() Window {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.count.Swap(0)
	now := c.now()
	elapsed := now.Sub(c.last)
	c.last = now

	w := Window{Count: n, Elapsed: elapsed, At: now}
	if n > 0 && elapsed > 0 {
		w.Rate = float64(n) / elapsed.Seconds()
	}
	return w
}
