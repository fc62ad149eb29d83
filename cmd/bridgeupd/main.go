package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Averyy/bridge-up/internal/bridge"
	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/daemon"
	"github.com/Averyy/bridge-up/internal/eventbus"
	"github.com/Averyy/bridge-up/internal/fanout"
	"github.com/Averyy/bridge-up/internal/scheduler"
	"github.com/Averyy/bridge-up/internal/server"
	"github.com/Averyy/bridge-up/internal/store"
	"github.com/Averyy/bridge-up/internal/vessel"
	"github.com/kardianos/service"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	app, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	svc, err := daemon.New(daemon.Config{
		Name:        "bridgeupd",
		DisplayName: "Seaway Bridge Status Daemon",
		Description: "Scrapes bridge status and AIS vessel positions and serves them over HTTP/WebSocket.",
	}, app)
	if err != nil {
		slog.Error("failed to build service wrapper", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		if err := service.Control(svc, os.Args[1]); err != nil {
			slog.Error("service control failed", "action", os.Args[1], "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		slog.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// app owns every long-lived component and implements daemon.Runner so the
// whole process can be installed as an OS service.
type app struct {
	cfg      *config.Config
	clock    clock.Clock
	bus      *eventbus.Bus
	scraper  *bridge.Scraper
	registry *vessel.Registry
	hub      *fanout.Hub
	udp      *vessel.UDPListener
	poller   *vessel.Poller
	srv      *server.Server

	mu           sync.Mutex
	lastBoatsRaw []byte

	shutdownOnce sync.Once
	cancel       context.CancelFunc
}

func newApp(cfg *config.Config) (*app, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	clk := clock.NewReal(loc)

	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SnapshotPath), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	snapStore := store.NewSnapshotStore(cfg.SnapshotPath)
	historyStore := store.NewHistoryStore(cfg.HistoryDir)
	snap := snapStore.Load()

	bus, err := eventbus.Start()
	if err != nil {
		return nil, fmt.Errorf("start event bus: %w", err)
	}

	registry := vessel.NewRegistry(roster.VesselRegions, clk)
	client := bridge.NewClient(cfg.InsecureSkipVerifyHost)
	scraper := bridge.NewScraper(roster.Regions, client, snapStore, historyStore, registry, bus, clk, snap)
	hub := fanout.NewHub()

	if err := bus.SubscribeBridgesChanged(func(e eventbus.BridgeSnapshotChanged) {
		hub.BroadcastBridges(scraper.Snapshot(), e.Regions)
	}); err != nil {
		return nil, fmt.Errorf("subscribe bridges_changed: %w", err)
	}

	a := &app{cfg: cfg, clock: clk, bus: bus, scraper: scraper, registry: registry, hub: hub}

	if err := bus.SubscribeVesselsChanged(func(eventbus.VesselRegistryChanged) {
		hub.BroadcastBoats(registry.Payload())
	}); err != nil {
		return nil, fmt.Errorf("subscribe vessels_changed: %w", err)
	}

	if cfg.AISUDPEnabled {
		a.udp = vessel.NewUDPListener(cfg.AISUDPPort, vessel.ParseStationMap(cfg.AISUDPStations), registry)
	}
	if cfg.AISHubAPIKey != "" {
		a.poller = vessel.NewPoller(cfg.AISHubURL, cfg.AISHubAPIKey, unionBoxQuery(roster.VesselRegions), registry)
	}

	a.srv = server.New(cfg, scraper, registry, hub, clk)
	return a, nil
}

// unionBoxQuery builds the AISHub bounding-box query spanning every
// configured vessel region, since the aggregator's API takes one box.
func unionBoxQuery(regions []config.VesselRegionRoster) string {
	if len(regions) == 0 {
		return ""
	}
	box := regions[0].Box
	for _, r := range regions[1:] {
		if r.Box.MinLat < box.MinLat {
			box.MinLat = r.Box.MinLat
		}
		if r.Box.MaxLat > box.MaxLat {
			box.MaxLat = r.Box.MaxLat
		}
		if r.Box.MinLon < box.MinLon {
			box.MinLon = r.Box.MinLon
		}
		if r.Box.MaxLon > box.MaxLon {
			box.MaxLon = r.Box.MaxLon
		}
	}
	return fmt.Sprintf("latmin=%f&latmax=%f&lonmin=%f&lonmax=%f", box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
}

// Run starts every background job and the HTTP server, blocking until ctx
// is cancelled.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.udp != nil {
		go func() {
			if err := a.udp.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("AIS UDP listener error", "error", err)
			}
		}()
	}

	jobs := []scheduler.Job{
		scheduler.NewBridgeScrapeJob(a.scraper.Tick),
		scheduler.NewStatsRecomputeJob(func(context.Context) {
			now := a.clock.Now()
			a.scraper.RecomputeAllStatistics(now)
			a.scraper.RecordStatsRecompute(now)
		}),
		scheduler.NewVesselCleanupJob(func() {
			if a.registry.Cleanup() > 0 {
				a.bus.PublishVesselsChanged()
			}
		}),
		scheduler.NewBoatProbeJob(a.probeBoats),
	}
	if a.poller != nil && a.poller.Enabled() {
		jobs = append(jobs, scheduler.NewAISPollJob(a.poller.Poll))
	}
	sched := scheduler.New(a.clock.Now, jobs...)
	go sched.Run(ctx)

	go func() {
		slog.Info("starting server", "port", a.cfg.Port)
		if err := a.srv.Start(); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	a.bus.Shutdown()
	return nil
}

// probeBoats compares the current vessels payload's canonical JSON against
// the last one broadcast, publishing only on change (spec.md §4.1).
func (a *app) probeBoats(context.Context) {
	payload := a.registry.Payload()
	raw, err := json.Marshal(payload.Vessels)
	if err != nil {
		slog.Error("marshal boats probe payload", "error", err)
		return
	}

	a.mu.Lock()
	changed := a.lastBoatsRaw == nil || string(raw) != string(a.lastBoatsRaw)
	a.lastBoatsRaw = raw
	a.mu.Unlock()

	if changed {
		a.bus.PublishVesselsChanged()
	}
}

// Shutdown is called by the service wrapper on stop.
func (a *app) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
	})
}

func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, lj)
	}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
