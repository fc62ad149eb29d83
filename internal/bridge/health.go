package bridge

import (
	"math"
	"sync"
	"time"
)

const maxBackoffSeconds = 300

// regionHealth is a per-region {failure_count, next_retry_at} record
// (spec.md §4.4 steps 1-2); the remembered working upstream shape is kept
// separately, in Scraper.shapes. Adapted
// from the connection-health bookkeeping a long-running poller needs to
// track per upstream, generalized here to one record per configured region.
type regionHealth struct {
	mu            sync.Mutex
	failureCount  int
	nextRetryAt   time.Time
	lastSuccess   time.Time
	hasSucceeded  bool
}

// HealthTracker owns one regionHealth per configured region.
type HealthTracker struct {
	mu      sync.Mutex
	regions map[string]*regionHealth
}

// NewHealthTracker creates an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{regions: make(map[string]*regionHealth)}
}

func (h *HealthTracker) entry(region string) *regionHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.regions[region]
	if !ok {
		e = &regionHealth{}
		h.regions[region] = e
	}
	return e
}

// ShouldSkip reports whether region's backoff window has not yet elapsed.
func (h *HealthTracker) ShouldSkip(region string, now time.Time) bool {
	e := h.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Before(e.nextRetryAt)
}

// RecordFailure increments the failure counter and schedules the next retry
// at now + min(2^failure_count, 300) seconds.
func (h *HealthTracker) RecordFailure(region string, now time.Time) {
	e := h.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount++
	backoff := math.Min(math.Pow(2, float64(e.failureCount)), maxBackoffSeconds)
	e.nextRetryAt = now.Add(time.Duration(backoff) * time.Second)
}

// RecordSuccess clears the failure counter.
func (h *HealthTracker) RecordSuccess(region string, now time.Time) {
	e := h.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount = 0
	e.nextRetryAt = time.Time{}
	e.lastSuccess = now
	e.hasSucceeded = true
}

// LastSuccess reports the last successful fetch time for region, and
// whether one has ever occurred.
func (h *HealthTracker) LastSuccess(region string) (time.Time, bool) {
	e := h.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSuccess, e.hasSucceeded
}

// FailureCount reports the current consecutive-failure count for region.
func (h *HealthTracker) FailureCount(region string) int {
	e := h.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failureCount
}
