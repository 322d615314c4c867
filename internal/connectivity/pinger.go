// Package connectivity checks whether the station can reach its uplink.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultTripAfter   = 3
	DefaultOpenTimeout = 2 * time.Minute
)

var errUnexpectedStatus = errors.New("unexpected status code")

type Options struct {
	URL    string
	Client *http.Client
	// TripAfter consecutive failures open the breaker for OpenTimeout.
	TripAfter   uint32
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// Pinger sends HEAD requests to a fixed URL through a circuit breaker. While
// the breaker is open Ping reports false without touching the network.
type Pinger struct {
	url     string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewPinger(opts Options) *Pinger {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = DefaultTripAfter
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "uplink",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Pinger{
		url:     opts.URL,
		client:  opts.Client,
		circuit: cb,
		logger:  logger,
	}
}

func (p *Pinger) Ping(ctx context.Context) bool {
	_, err := p.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
		}
		return nil, nil
	})
	if err == nil {
		return true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.logger.Debug("ping skipped, circuit open", "url", p.url)
		return false
	}
	p.logger.Debug("ping failed", "url", p.url, "error", err)
	return false
}
