package vessel

import (
	"testing"
	"time"

	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/model"
)

func wellandRegions() []config.VesselRegionRoster {
	return []config.VesselRegionRoster{
		{Name: "welland", Box: config.BoundingBox{MinLat: 42.80, MaxLat: 43.25, MinLon: -79.30, MaxLon: -79.15}},
	}
}

func speedPtr(s float64) *float64 { return &s }

func TestMergeInsertsNewVessel(t *testing.T) {
	c := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistry(wellandRegions(), c)

	changed := r.Merge(Update{
		MMSI:        265547250,
		Position:    model.Coordinates{Lat: 43.1, Lng: -79.2},
		SpeedKnots:  speedPtr(5),
		Source:      model.SourceUDP,
		HasPosition: true,
	})
	if !changed {
		t.Fatal("expected insert to report a change")
	}

	vessels := r.Snapshot()
	if len(vessels) != 1 || vessels[0].MMSI != 265547250 {
		t.Fatalf("unexpected snapshot: %+v", vessels)
	}
	if vessels[0].Region != model.RegionWelland {
		t.Fatalf("expected welland region, got %q", vessels[0].Region)
	}
}

func TestMergeRejectsOutOfRangeMMSI(t *testing.T) {
	c := clock.NewFake(time.Now())
	r := NewRegistry(wellandRegions(), c)

	if r.Merge(Update{MMSI: 100, Position: model.Coordinates{Lat: 43.1, Lng: -79.2}, Source: model.SourceUDP, HasPosition: true}) {
		t.Fatal("expected out-of-range MMSI to be rejected")
	}
}

func TestMergeRejectsOutsideAllRegions(t *testing.T) {
	c := clock.NewFake(time.Now())
	r := NewRegistry(wellandRegions(), c)

	if r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 10, Lng: 10}, Source: model.SourceUDP, HasPosition: true}) {
		t.Fatal("expected out-of-bounds position to be rejected")
	}
}

func TestMergeUDPBeatsRecentHTTP(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(now)
	r := NewRegistry(wellandRegions(), c)

	r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.10, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})

	c.Advance(10 * time.Second)
	changed := r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.11, Lng: -79.21}, Source: model.SourceHTTP, HasPosition: true})
	if changed {
		t.Fatal("expected HTTP update within the UDP freshness window to be ignored")
	}

	vessels := r.Snapshot()
	if vessels[0].Position.Lat != 43.10 {
		t.Fatalf("expected UDP position retained, got %v", vessels[0].Position)
	}
}

func TestMergeHTTPAcceptedAfterUDPSilence(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(now)
	r := NewRegistry(wellandRegions(), c)

	r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.10, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})

	c.Advance(70 * time.Second)
	changed := r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.11, Lng: -79.21}, Source: model.SourceHTTP, HasPosition: true})
	if !changed {
		t.Fatal("expected HTTP update after UDP silence to be accepted")
	}

	vessels := r.Snapshot()
	if vessels[0].Position.Lat != 43.11 {
		t.Fatalf("expected HTTP position applied, got %v", vessels[0].Position)
	}
}

func TestMergeLastMovedOnlyAdvancesPastThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(now)
	r := NewRegistry(wellandRegions(), c)

	r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.10, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})
	firstMoved := r.Snapshot()[0].LastMoved

	c.Advance(time.Minute)
	// ~1m displacement, below the 10m threshold.
	r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.100009, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})
	if !r.Snapshot()[0].LastMoved.Equal(firstMoved) {
		t.Fatal("expected last_moved to be unchanged for sub-threshold displacement")
	}

	c.Advance(time.Minute)
	r.Merge(Update{MMSI: 265547250, Position: model.Coordinates{Lat: 43.105, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})
	if r.Snapshot()[0].LastMoved.Equal(firstMoved) {
		t.Fatal("expected last_moved to advance for a displacement beyond 10m")
	}
}

func TestCleanupRemovesStaleVessels(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(now)
	r := NewRegistry(wellandRegions(), c)

	r.Merge(Update{MMSI: 111111111, Position: model.Coordinates{Lat: 43.10, Lng: -79.20}, Source: model.SourceUDP, HasPosition: true})
	r.Merge(Update{MMSI: 222222222, Position: model.Coordinates{Lat: 43.11, Lng: -79.21}, Source: model.SourceUDP, HasPosition: true})

	c.Advance(16 * time.Minute)
	removed := r.Cleanup()
	if removed != 2 {
		t.Fatalf("expected both vessels evicted as stale, removed=%d", removed)
	}
	if len(r.Snapshot()) != 0 {
		t.Fatalf("expected empty registry after cleanup")
	}
}
