package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Averyy/bridge-up/internal/bridge"
	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/eventbus"
	"github.com/Averyy/bridge-up/internal/fanout"
	"github.com/Averyy/bridge-up/internal/model"
	"github.com/Averyy/bridge-up/internal/store"
	"github.com/Averyy/bridge-up/internal/vessel"
	"github.com/go-chi/chi/v5"
)

func newTestHandlers(t *testing.T, upstreamURL string, now time.Time) (*Handlers, *clock.Fake) {
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

	fc := clock.NewFake(now)
	registry := vessel.NewRegistry(nil, fc)
	bus, err := eventbus.Start()
	if err != nil {
		t.Fatalf("start event bus: %v", err)
	}
	t.Cleanup(bus.Shutdown)

	client := bridge.NewClient("")
	scraper := bridge.NewScraper([]config.RegionRoster{region}, client, snapStore, historyStore, registry, bus, fc, model.NewSnapshot())
	hub := fanout.NewHub()

	return New(scraper, registry, hub, fc), fc
}

func TestHandlersBridgesEmptySnapshot(t *testing.T) {
	h, _ := newTestHandlers(t, "http://unused.invalid", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	req := httptest.NewRequest(http.MethodGet, "/bridges", nil)
	w := httptest.NewRecorder()
	h.Bridges(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != dataCacheControl {
		t.Errorf("Cache-Control = %q, want %q", cc, dataCacheControl)
	}
}

func TestHandlersBridgeByIDNotFound(t *testing.T) {
	h, _ := newTestHandlers(t, "http://unused.invalid", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	req := httptest.NewRequest(http.MethodGet, "/bridges/nonexistent", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "nonexistent")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.BridgeByID(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandlersBoatsEmptyRegistry(t *testing.T) {
	h, _ := newTestHandlers(t, "http://unused.invalid", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	req := httptest.NewRequest(http.MethodGet, "/boats", nil)
	w := httptest.NewRecorder()
	h.Boats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHealthDegradesOnFailingRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, _ := newTestHandlers(t, srv.URL, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	h.scraper.Tick(context.Background())

	resp := h.buildHealth()
	if resp.SeawayStatus != "degraded" {
		t.Errorf("seaway_status = %q, want degraded", resp.SeawayStatus)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestHealthStaleWhenNoBridgeActivityYet(t *testing.T) {
	h, _ := newTestHandlers(t, "http://unused.invalid", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	resp := h.buildHealth()
	if resp.BridgeActivity != "stale" {
		t.Errorf("bridge_activity = %q, want stale before any scrape commits", resp.BridgeActivity)
	}
}

func TestInNavigationSeason(t *testing.T) {
	cases := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := inNavigationSeason(c.t); got != c.want {
			t.Errorf("inNavigationSeason(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestBridgeActivityThreshold(t *testing.T) {
	if got := bridgeActivityThreshold(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)); got != navigationSeasonActivityThreshold {
		t.Errorf("threshold in season = %v, want %v", got, navigationSeasonActivityThreshold)
	}
	if got := bridgeActivityThreshold(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); got != offSeasonActivityThreshold {
		t.Errorf("threshold off season = %v, want %v", got, offSeasonActivityThreshold)
	}
}
