package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Averyy/bridge-up/internal/attribution"
	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/eventbus"
	"github.com/Averyy/bridge-up/internal/model"
	"github.com/Averyy/bridge-up/internal/predict"
	"github.com/Averyy/bridge-up/internal/stats"
	"github.com/Averyy/bridge-up/internal/store"
	"github.com/Averyy/bridge-up/internal/vessel"
	"github.com/google/uuid"
)

const regionWorkerPoolSize = 4

// Scraper ties the HTTP client, the two-shape parser, the health/backoff
// tracker, persistence, and the downstream prediction/attribution engines
// into the per-region tick described in spec.md §4.4.
type Scraper struct {
	regions  []config.RegionRoster
	client   *Client
	health   *HealthTracker
	snapshot *store.SnapshotStore
	history  *store.HistoryStore
	registry *vessel.Registry
	bus      *eventbus.Bus
	clock    clock.Clock

	mu                sync.Mutex
	snap              *model.Snapshot
	lastScrapeAt      time.Time
	lastScrapeChanged bool
	statsLastUpdated  time.Time

	shapeMu sync.Mutex
	shapes  map[string]config.UpstreamShape // region name -> last-working shape
}

// Status is a point-in-time view of the scraper's liveness, feeding /health.
type Status struct {
	LastScrape           time.Time
	LastScrapeHadChanges bool
	StatisticsLastUpdated time.Time
	BridgesCount         int
	FailingRegions       []string
}

// HealthStatus returns the scraper's current liveness view.
func (s *Scraper) HealthStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failing []string
	for _, r := range s.regions {
		if s.health.FailureCount(r.Name) > 0 {
			failing = append(failing, r.Name)
		}
	}

	return Status{
		LastScrape:            s.lastScrapeAt,
		LastScrapeHadChanges:  s.lastScrapeChanged,
		StatisticsLastUpdated: s.statsLastUpdated,
		BridgesCount:          len(s.snap.Bridges),
		FailingRegions:        failing,
	}
}

// RecordStatsRecompute marks when the daily statistics recompute job last ran.
func (s *Scraper) RecordStatsRecompute(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsLastUpdated = now
}

// RecomputeAllStatistics reloads each bridge's history and recomputes its
// Statistics block (the daily statistics-recompute job, spec.md §4.1).
func (s *Scraper) RecomputeAllStatistics(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.snap.Bridges {
		history := s.history.Load(id)
		b.Static.Statistics = stats.Compute(history)
	}
	s.statsLastUpdated = now
	if err := s.snapshot.Save(s.snap); err != nil {
		slog.Error("failed to persist snapshot after stats recompute", "error", err)
	}
}

// NewScraper builds a Scraper. snap is the snapshot loaded at startup; the
// Scraper owns it from this point on.
func NewScraper(
	regions []config.RegionRoster,
	client *Client,
	snapshotStore *store.SnapshotStore,
	historyStore *store.HistoryStore,
	registry *vessel.Registry,
	bus *eventbus.Bus,
	c clock.Clock,
	snap *model.Snapshot,
) *Scraper {
	shapes := make(map[string]config.UpstreamShape, len(regions))
	for _, r := range regions {
		shapes[r.Name] = r.Shape
	}
	return &Scraper{
		regions:  regions,
		client:   client,
		health:   NewHealthTracker(),
		snapshot: snapshotStore,
		history:  historyStore,
		registry: registry,
		bus:      bus,
		clock:    c,
		snap:     snap,
		shapes:   shapes,
	}
}

// Snapshot returns a deep copy of the current in-memory snapshot, safe to
// read or marshal after the lock is released while Tick continues mutating
// the live snapshot on another goroutine.
func (s *Scraper) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Tick runs one scrape pass over every configured region, bounded to
// regionWorkerPoolSize concurrent regions (spec.md §4.4 step 9), isolating
// per-region failures from each other.
func (s *Scraper) Tick(ctx context.Context) {
	s.mu.Lock()
	s.lastScrapeAt = s.clock.Now()
	s.lastScrapeChanged = false
	s.mu.Unlock()

	sem := make(chan struct{}, regionWorkerPoolSize)
	var wg sync.WaitGroup

	for _, region := range s.regions {
		region := region
		now := s.clock.Now()
		if s.health.ShouldSkip(region.Name, now) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.scrapeRegion(ctx, region)
		}()
	}
	wg.Wait()
}

func (s *Scraper) scrapeRegion(ctx context.Context, region config.RegionRoster) {
	now := s.clock.Now()

	shape := s.currentShape(region.Name)
	body, err := s.client.Fetch(ctx, region.UpstreamURL)
	if err != nil {
		s.health.RecordFailure(region.Name, now)
		slog.Warn("region fetch failed", "region", region.Name, "error", err)
		return
	}

	raw, err := parseByShape(shape, body)
	if err != nil {
		// The remembered shape failed to parse this response; try the other
		// known shape once before giving up on this tick (spec.md §4.4 step 2).
		fallback := otherShape(shape)
		raw, err = parseByShape(fallback, body)
		if err != nil {
			s.health.RecordFailure(region.Name, now)
			slog.Warn("region parse failed in both shapes", "region", region.Name, "error", err)
			return
		}
		shape = fallback
		s.rememberShape(region.Name, shape)
	}

	s.health.RecordSuccess(region.Name, now)
	s.commit(region, raw, now)
}

func (s *Scraper) currentShape(region string) config.UpstreamShape {
	s.shapeMu.Lock()
	defer s.shapeMu.Unlock()
	return s.shapes[region]
}

func (s *Scraper) rememberShape(region string, shape config.UpstreamShape) {
	s.shapeMu.Lock()
	defer s.shapeMu.Unlock()
	s.shapes[region] = shape
}

// commit merges one region's freshly parsed bridges into the snapshot,
// recording history transitions, predictions, and attribution, then
// persists and announces the change if anything observable moved.
func (s *Scraper) commit(region config.RegionRoster, raw []rawBridge, now time.Time) {
	byKey := make(map[string]rawBridge, len(raw))
	for _, rb := range raw {
		byKey[rb.UpstreamKey] = rb
	}

	vessels := s.registry.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, br := range region.Bridges {
		rb, ok := byKey[br.UpstreamKey]
		if !ok {
			continue
		}

		existing, hasExisting := s.snap.Bridges[br.ID]
		if !hasExisting {
			existing = &model.Bridge{
				Static: model.BridgeStatic{
					ID:          br.ID,
					Name:        br.Name,
					Region:      region.Name,
					RegionShort: region.ShortCode,
					Coordinates: model.Coordinates{Lat: br.Lat, Lng: br.Lng},
				},
			}
			s.snap.Bridges[br.ID] = existing
			s.snap.AvailableBridges = append(s.snap.AvailableBridges, model.AvailableBridge{
				ID:          br.ID,
				Name:        br.Name,
				RegionShort: region.ShortCode,
				Region:      region.Name,
			})
		}

		if s.applyTransition(existing, br.ID, rb, now) {
			changed = true
		}

		existing.Live.UpcomingClosures = rb.UpcomingClosures
		existing.Live.Predicted = predict.Predict(existing.Live.Status, existing.Live.LastUpdated, existing.Static.Statistics, rb.UpcomingClosures, now)
		existing.Live.ResponsibleVesselMMSI = attribution.Responsible(existing.Static.Coordinates, existing.Live.Status, vessels)
	}

	if !changed {
		return
	}

	s.snap.LastUpdated = now
	s.lastScrapeChanged = true
	if err := s.snapshot.Save(s.snap); err != nil {
		slog.Error("failed to persist snapshot", "region", region.Name, "error", err)
	}
	s.bus.PublishBridgesChanged([]string{region.ShortCode})
}

// applyTransition compares the newly parsed status and upcoming-closures
// list against the stored live record, updating history only when the
// observable status actually changed (spec.md §4.4 step 6). The "observable"
// comparison spec.md §4.4 step 5 calls for covers status and
// upcoming_closures; returns true if either changed.
func (s *Scraper) applyTransition(b *model.Bridge, bridgeID string, rb rawBridge, now time.Time) bool {
	isFirstObservation := !b.Live.LastUpdated.After(time.Time{})
	statusChanged := isFirstObservation || b.Live.Status != rb.Status
	closuresChanged := !upcomingClosuresEqual(b.Live.UpcomingClosures, rb.UpcomingClosures)

	if !statusChanged && !closuresChanged {
		return false
	}
	if !statusChanged {
		// Only the upcoming-closures list moved; no status transition to
		// record in history.
		return true
	}

	if !isFirstObservation {
		elapsed := now.Sub(b.Live.LastUpdated).Seconds()
		closed := b.Live.LastUpdated
		if err := s.history.ReplaceMostRecent(bridgeID, model.HistoryEntry{
			ID:        uuid.NewString(),
			StartTime: closed,
			EndTime:   &now,
			Status:    b.Live.Status,
			Duration:  &elapsed,
		}); err != nil {
			slog.Error("failed to close history entry", "bridge", bridgeID, "error", err)
		}
	}

	if err := s.history.Prepend(bridgeID, model.HistoryEntry{
		ID:        uuid.NewString(),
		StartTime: now,
		Status:    rb.Status,
	}); err != nil {
		slog.Error("failed to open history entry", "bridge", bridgeID, "error", err)
	}

	history := s.history.Load(bridgeID)
	b.Static.Statistics = stats.Compute(history)

	b.Live.Status = rb.Status
	b.Live.LastUpdated = now
	return true
}

// upcomingClosuresEqual reports whether two closure lists are observably
// identical. Time fields are compared with time.Equal rather than == so a
// round-trip through a different time.Time representation of the same
// instant (e.g. after JSON marshal/unmarshal) doesn't register as a change.
func upcomingClosuresEqual(a, b []model.UpcomingClosure) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !closureEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func closureEqual(a, b model.UpcomingClosure) bool {
	if a.Type != b.Type || a.Longer != b.Longer {
		return false
	}
	if !a.Time.Equal(b.Time) {
		return false
	}
	if !intPtrEqual(a.ExpectedDurationMinutes, b.ExpectedDurationMinutes) {
		return false
	}
	return timePtrEqual(a.EndTime, b.EndTime)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
