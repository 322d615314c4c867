// Package aggregator owns the live snapshot and the current day's rollup. It
// consumes sensor payloads, closes days on rollover, drives the display and
// tracks uplink connectivity.
package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cloudpico-station/internal/bus"
	"cloudpico-station/internal/display"
	"cloudpico-station/internal/modules/weather/types"
)

const (
	DefaultCycleBudget       = time.Second
	DefaultDisplayEvery      = 5
	DefaultConnectivityEvery = 60
	DefaultPersistTimeout    = 5 * time.Second
	DefaultPingTimeout       = 10 * time.Second
)

// RainStore persists a closed day's rain.
type RainStore interface {
	InsertRainTotal(ctx context.Context, total types.RainTotal) error
}

// Pinger reports whether the uplink is reachable.
type Pinger interface {
	Ping(ctx context.Context) bool
}

type Options struct {
	Payloads *bus.Queue[types.Payload]
	Store    RainStore
	Pinger   Pinger
	Display  display.Display

	// DisplayEvery and ConnectivityEvery are counted in cycles.
	DisplayEvery      int
	ConnectivityEvery int
	CycleBudget       time.Duration
	PersistTimeout    time.Duration
	PingTimeout       time.Duration

	Logger *slog.Logger
	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

type Aggregator struct {
	payloads *bus.Queue[types.Payload]
	inbox    *bus.Queue[bus.Event]
	store    RainStore
	pinger   Pinger
	display  display.Display

	displayEvery      uint64
	connectivityEvery uint64
	budget            time.Duration
	persistTimeout    time.Duration
	pingTimeout       time.Duration

	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	snapshot types.Snapshot
	day      types.DayRollup

	online  atomic.Bool
	pinging atomic.Bool
	pings   sync.WaitGroup

	// Only touched by the goroutine calling Step.
	cycle   uint64
	page    int
	started time.Time
}

func New(opts Options) *Aggregator {
	a := &Aggregator{
		payloads:          opts.Payloads,
		inbox:             bus.NewQueue[bus.Event](),
		store:             opts.Store,
		pinger:            opts.Pinger,
		display:           opts.Display,
		displayEvery:      positive(opts.DisplayEvery, DefaultDisplayEvery),
		connectivityEvery: positive(opts.ConnectivityEvery, DefaultConnectivityEvery),
		budget:            opts.CycleBudget,
		persistTimeout:    opts.PersistTimeout,
		pingTimeout:       opts.PingTimeout,
		logger:            opts.Logger,
		now:               opts.Now,
		sleep:             opts.Sleep,
	}
	if a.budget <= 0 {
		a.budget = DefaultCycleBudget
	}
	if a.persistTimeout <= 0 {
		a.persistTimeout = DefaultPersistTimeout
	}
	if a.pingTimeout <= 0 {
		a.pingTimeout = DefaultPingTimeout
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.sleep == nil {
		a.sleep = sleepCtx
	}
	a.started = a.now()
	a.day = types.NewDayRollup(a.started, nil)
	return a
}

func positive(v, def int) uint64 {
	if v <= 0 {
		return uint64(def)
	}
	return uint64(v)
}

// Notify queues a control event for the next cycle. It is safe to call from
// any goroutine and never blocks.
func (a *Aggregator) Notify(ev bus.Event) {
	a.inbox.Publish(ev)
}

// Run steps the aggregator once per cycle budget until ctx is done. It waits
// for an in-flight ping before returning.
func (a *Aggregator) Run(ctx context.Context) error {
	defer a.pings.Wait()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := a.now()
		a.Step(ctx)
		elapsed := a.now().Sub(start)

		remaining := a.budget - elapsed
		if remaining <= 0 {
			a.logger.Warn("aggregator cycle over budget", "elapsed", elapsed, "budget", a.budget)
			continue
		}
		if err := a.sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

// Step runs one cycle. Control events are taken before payloads are drained
// and handled after them, so every reading published ahead of a rollover
// lands in the closing day.
func (a *Aggregator) Step(ctx context.Context) {
	events := a.inbox.Drain()
	a.applyPayloads()
	a.handleEvents(ctx, events)

	if a.display != nil && a.cycle%a.displayEvery == 0 {
		a.renderPage()
	}
	if a.pinger != nil && a.cycle%a.connectivityEvery == 0 {
		a.startPing(ctx)
	}
	a.cycle++
}

func (a *Aggregator) applyPayloads() {
	if a.payloads == nil {
		return
	}
	pending := a.payloads.Drain()
	if len(pending) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range pending {
		if err := types.Apply(p, &a.snapshot, &a.day); err != nil {
			a.logger.Warn("payload dropped", "error", err)
		}
	}
}

func (a *Aggregator) handleEvents(ctx context.Context, events []bus.Event) {
	for _, ev := range events {
		switch ev {
		case bus.EventDayRollover:
			a.rollover(ctx)
		default:
			a.logger.Warn("aggregator ignored event", "event", ev.String())
		}
	}
}

func (a *Aggregator) rollover(ctx context.Context) {
	now := a.now()

	a.mu.Lock()
	closed := a.day
	a.day = types.NewDayRollup(now, &closed)
	a.mu.Unlock()

	total := closed.RainTotal(now)
	a.logger.Info("day closed",
		"day", total.Day.Format(time.DateOnly),
		"rain_ticks", total.Ticks,
		"rain_in", total.Inches,
	)
	if a.store == nil {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, a.persistTimeout)
	defer cancel()
	if err := a.store.InsertRainTotal(pctx, total); err != nil {
		a.logger.Error("persist rain total failed", "day", total.Day.Format(time.DateOnly), "error", err)
	}
}

func (a *Aggregator) renderPage() {
	now := a.now()
	v := display.View{
		Now:      now,
		Snapshot: a.Latest(),
		Day:      a.Daytime(),
		Online:   a.online.Load(),
		Uptime:   now.Sub(a.started),
	}
	page := a.page
	a.page = (a.page + 1) % display.NumPages

	if err := a.display.Clear(); err != nil {
		a.logger.Warn("display clear failed", "error", err)
		return
	}
	if err := a.display.Home(); err != nil {
		a.logger.Warn("display home failed", "error", err)
		return
	}
	if err := a.display.Write(display.Render(page, v), page); err != nil {
		a.logger.Warn("display write failed", "page", page, "error", err)
	}
}

// startPing launches one ping unless another is still in flight.
func (a *Aggregator) startPing(ctx context.Context) {
	if !a.pinging.CompareAndSwap(false, true) {
		return
	}
	a.pings.Add(1)
	go func() {
		defer a.pings.Done()
		defer a.pinging.Store(false)

		pctx, cancel := context.WithTimeout(ctx, a.pingTimeout)
		defer cancel()
		ok := a.pinger.Ping(pctx)
		if prev := a.online.Swap(ok); prev != ok {
			a.logger.Info("connectivity changed", "online", ok)
		}
	}()
}

// Latest returns a copy of the live snapshot.
func (a *Aggregator) Latest() types.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Daytime returns a deep copy of the current day, including the closed one.
func (a *Aggregator) Daytime() types.DayRollup {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.day.Clone()
}

func (a *Aggregator) Online() bool {
	return a.online.Load()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
