// Package scheduler generalizes a single-ticker worker loop into several
// independently-paced jobs sharing one cooperative shutdown signal
// (spec.md §4.1, §5): the bridge scrape, the daily statistics recompute,
// vessel registry cleanup, the AIS HTTP poll, and the boat-change probe.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one independently-scheduled unit of work. NextInterval computes
// the wait before the next run, evaluated fresh after every run so a job
// like the bridge scrape can switch pace between day and night. Run may
// return a positive override duration (used by the AIS poller, whose pace
// is governed by its own backoff state) instead of falling back to
// NextInterval.
type Job struct {
	Name         string
	NextInterval func(now time.Time) time.Duration
	Run          func(ctx context.Context) time.Duration
}

// Scheduler runs a fixed set of Jobs until the context it's given is
// cancelled. Each job enforces at-most-one-in-flight: if a run is still
// executing when its timer fires, that tick is skipped (coalesced) rather
// than queued, since the job itself always acts on current state.
type Scheduler struct {
	clock func() time.Time
	jobs  []Job
}

// New creates a Scheduler. clock lets tests inject a deterministic "now".
func New(clock func() time.Time, jobs ...Job) *Scheduler {
	return &Scheduler{clock: clock, jobs: jobs}
}

// Run starts every job on its own goroutine and blocks until ctx is
// cancelled, then waits for in-flight runs to return.
func (s *Scheduler) Run(ctx context.Context) {
	done := make(chan struct{}, len(s.jobs))
	for _, job := range s.jobs {
		go func(j Job) {
			s.runJob(ctx, j)
			done <- struct{}{}
		}(job)
	}
	for range s.jobs {
		<-done
	}
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	var running atomic.Bool
	var inFlight sync.WaitGroup
	interval := j.NextInterval(s.clock())
	timer := time.NewTimer(interval)
	defer timer.Stop()

	slog.Info("scheduler job started", "job", j.Name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			inFlight.Wait()
			slog.Info("scheduler job stopped", "job", j.Name)
			return
		case <-timer.C:
			if running.Load() {
				slog.Debug("scheduler job tick skipped, run still in flight", "job", j.Name)
				timer.Reset(j.NextInterval(s.clock()))
				continue
			}
			running.Store(true)
			inFlight.Add(1)
			go func() {
				defer inFlight.Done()
				defer running.Store(false)
				if override := j.Run(ctx); override > 0 {
					timer.Reset(override)
					return
				}
				timer.Reset(j.NextInterval(s.clock()))
			}()
		}
	}
}
