package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsJobOnTick(t *testing.T) {
	var calls int32
	job := Job{
		Name:         "fast",
		NextInterval: func(time.Time) time.Duration { return 10 * time.Millisecond },
		Run: func(ctx context.Context) time.Duration {
			atomic.AddInt32(&calls, 1)
			return 0
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	s := New(time.Now, job)
	s.Run(ctx)

	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected at least 2 runs, got %d", calls)
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	job := Job{
		Name:         "slow",
		NextInterval: func(time.Time) time.Duration { return 5 * time.Millisecond },
		Run: func(ctx context.Context) time.Duration {
			n := atomic.AddInt32(&concurrent, 1)
			if n > atomic.LoadInt32(&maxConcurrent) {
				atomic.StoreInt32(&maxConcurrent, n)
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return 0
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s := New(time.Now, job)
	s.Run(ctx)

	if maxConcurrent > 1 {
		t.Errorf("max concurrent runs = %d, want at most 1", maxConcurrent)
	}
}

func TestBridgeScrapeIntervalDayNight(t *testing.T) {
	day := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	if got := BridgeScrapeInterval(day); got != dayScrapeInterval {
		t.Errorf("day interval = %v, want %v", got, dayScrapeInterval)
	}
	night := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	if got := BridgeScrapeInterval(night); got != nightScrapeInterval {
		t.Errorf("night interval = %v, want %v", got, nightScrapeInterval)
	}
}

func TestUntilNextStatsRecomputeSameDay(t *testing.T) {
	now := time.Date(2026, 6, 1, 1, 0, 0, 0, time.UTC)
	d := UntilNextStatsRecompute(now)
	want := 2 * time.Hour
	if d != want {
		t.Errorf("duration = %v, want %v", d, want)
	}
}

func TestUntilNextStatsRecomputeNextDay(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	d := UntilNextStatsRecompute(now)
	want := 17 * time.Hour
	if d != want {
		t.Errorf("duration = %v, want %v", d, want)
	}
}

func TestAISPollJobUsesOverrideInterval(t *testing.T) {
	job := NewAISPollJob(func(ctx context.Context) time.Duration {
		return 42 * time.Second
	})
	if got := job.Run(context.Background()); got != 42*time.Second {
		t.Errorf("override = %v, want 42s", got)
	}
}
