package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/eventbus"
	"github.com/Averyy/bridge-up/internal/model"
	"github.com/Averyy/bridge-up/internal/store"
	"github.com/Averyy/bridge-up/internal/vessel"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]model.Status{
		"Available":                     model.StatusOpen,
		"Unavailable":                   model.StatusClosed,
		"Available (raising soon)":     model.StatusClosingSoon,
		"Unavailable (raising)":        model.StatusClosing,
		"Unavailable (lowering)":       model.StatusOpening,
		"Unavailable (work in progress)": model.StatusConstruction,
		"garbage":                       model.StatusUnknown,
	}
	for raw, want := range cases {
		if got := normalizeStatus(raw); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestClosureDurationMinutes(t *testing.T) {
	cases := []struct {
		t      model.ClosureType
		longer bool
		want   int
	}{
		{model.ClosureCommercialVessel, false, 15},
		{model.ClosureCommercialVessel, true, 30},
		{model.ClosurePleasureCraft, false, 10},
		{model.ClosurePleasureCraft, true, 20},
		{model.ClosureNextArrival, false, 15},
		{model.ClosureNextArrival, true, 30},
	}
	for _, c := range cases {
		got := closureDurationMinutes(c.t, c.longer)
		if got == nil || *got != c.want {
			t.Errorf("closureDurationMinutes(%v, %v) = %v, want %d", c.t, c.longer, got, c.want)
		}
	}
	if got := closureDurationMinutes(model.ClosureConstruction, false); got != nil {
		t.Errorf("closureDurationMinutes(Construction) = %v, want nil", got)
	}
}

func newTestScraper(t *testing.T, upstreamURL string) (*Scraper, string) {
	t.Helper()
	dir := t.TempDir()
	region := config.RegionRoster{
		Name:        "St. Catharines",
		ShortCode:   "sct",
		UpstreamURL: upstreamURL,
		Shape:       config.ShapeSeawayJSON,
		Bridges: []config.BridgeRoster{
			{ID: "sct-homer", Name: "Homer Bridge", Lat: 43.161, Lng: -79.2467, UpstreamKey: "4"},
		},
	}

	snapStore := store.NewSnapshotStore(filepath.Join(dir, "snapshot.json"))
	historyStore := store.NewHistoryStore(filepath.Join(dir, "history"))
	if err := os.MkdirAll(filepath.Join(dir, "history"), 0o755); err != nil {
		t.Fatalf("mkdir history: %v", err)
	}

	registry := vessel.NewRegistry(nil, clock.NewFake(time.Now()))
	bus, err := eventbus.Start()
	if err != nil {
		t.Fatalf("start event bus: %v", err)
	}
	t.Cleanup(bus.Shutdown)

	c := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	client := NewClient("")

	s := NewScraper([]config.RegionRoster{region}, client, snapStore, historyStore, registry, bus, c, model.NewSnapshot())
	return s, dir
}

func TestScraperTickCreatesBridgeAndHistory(t *testing.T) {
	body := `{"bridges":[{"id":"4","status":"Unavailable","bridgeLiftList":[]}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	s, dir := newTestScraper(t, srv.URL)
	s.Tick(context.Background())

	snap := s.Snapshot()
	b, ok := snap.Bridges["sct-homer"]
	if !ok {
		t.Fatal("expected bridge sct-homer to be created")
	}
	if b.Live.Status != model.StatusClosed {
		t.Errorf("status = %q, want Closed", b.Live.Status)
	}

	history := s.history.Load("sct-homer")
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].EndTime != nil {
		t.Error("expected the open entry to have no end_time yet")
	}

	if _, err := os.Stat(filepath.Join(dir, "snapshot.json")); err != nil {
		t.Errorf("expected snapshot file to be written: %v", err)
	}
}

func TestScraperTickClosesPreviousHistoryEntryOnTransition(t *testing.T) {
	status := "Unavailable"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"bridges": []map[string]any{
				{"id": "4", "status": status, "bridgeLiftList": []any{}},
			},
		}
		data, _ := json.Marshal(doc)
		w.Write(data)
	}))
	defer srv.Close()

	s, _ := newTestScraper(t, srv.URL)
	s.Tick(context.Background())

	status = "Available"
	fc := s.clock.(*clock.Fake)
	fc.Advance(5 * time.Minute)
	s.Tick(context.Background())

	history := s.history.Load("sct-homer")
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[0].Status != model.StatusOpen {
		t.Errorf("newest entry status = %q, want Open", history[0].Status)
	}
	if history[1].Status != model.StatusClosed || history[1].EndTime == nil {
		t.Errorf("oldest entry = %+v, want closed Closed entry with end_time", history[1])
	}
}

func TestScraperTickSkipsRegionDuringBackoff(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := newTestScraper(t, srv.URL)
	s.Tick(context.Background())
	if calls != fetchRetries+1 {
		t.Fatalf("calls after first tick = %d, want %d", calls, fetchRetries+1)
	}

	s.Tick(context.Background())
	if calls != fetchRetries+1 {
		t.Errorf("second tick should have been skipped by backoff, calls = %d", calls)
	}
}

func TestParseByShapeUnknownShape(t *testing.T) {
	if _, err := parseByShape("bogus", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestOtherShape(t *testing.T) {
	if otherShape(config.ShapeSeawayJSON) != config.ShapeLegacyTable {
		t.Error("otherShape(seaway_json) should be legacy_table")
	}
	if otherShape(config.ShapeLegacyTable) != config.ShapeSeawayJSON {
		t.Error("otherShape(legacy_table) should be seaway_json")
	}
}
