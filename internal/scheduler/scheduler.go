// Package scheduler fires bus events on cron schedules. It keeps no sensor
// state and does no I/O: the owner ticks it and it publishes.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"cloudpico-station/internal/bus"
)

// DefaultTickPeriod is how often the dispatch loop polls the scheduler.
const DefaultTickPeriod = 100 * time.Millisecond

// maxCatchUp bounds how many missed windows advance walks before giving up.
const maxCatchUp = 10000

type Job struct {
	Name  string
	Spec  string // standard cron or descriptor such as "@every 5m", "@midnight"
	Event bus.Event
}

type EventPublisher interface {
	Publish(bus.Event)
}

type entry struct {
	job      Job
	schedule cron.Schedule
	next     time.Time
}

type Scheduler struct {
	entries []*entry
	out     EventPublisher
	logger  *slog.Logger
}

// New parses every job and schedules its first firing after now.
func New(jobs []Job, out EventPublisher, now time.Time, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{out: out, logger: logger}
	for _, j := range jobs {
		sched, err := cron.ParseStandard(j.Spec)
		if err != nil {
			return nil, fmt.Errorf("scheduler: job %q spec %q: %w", j.Name, j.Spec, err)
		}
		e := &entry{job: j, schedule: sched, next: sched.Next(now)}
		s.entries = append(s.entries, e)
		logger.Info("job scheduled", "job", j.Name, "spec", j.Spec, "event", j.Event.String(), "next", e.next)
	}
	return s, nil
}

// Tick publishes the event of every job due at now and returns how many
// fired. A job that missed several periods fires once.
func (s *Scheduler) Tick(now time.Time) int {
	fired := 0
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		s.out.Publish(e.job.Event)
		e.next = e.advance(now)
		fired++
		s.logger.Debug("job fired", "job", e.job.Name, "event", e.job.Event.String(), "next", e.next)
	}
	return fired
}

// advance steps the schedule from its due time past now, so a late tick
// keeps the job on its original phase. A clock jump too far to walk falls
// back to scheduling from now.
func (e *entry) advance(now time.Time) time.Time {
	next := e.next
	for i := 0; i < maxCatchUp; i++ {
		next = e.schedule.Next(next)
		if next.After(now) {
			return next
		}
	}
	return e.schedule.Next(now)
}

// Next reports when the named job fires next.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	for _, e := range s.entries {
		if e.job.Name == name {
			return e.next, true
		}
	}
	return time.Time{}, false
}
