package scheduler

import (
	"context"
	"time"
)

const (
	dayScrapeInterval   = 20 * time.Second
	nightScrapeInterval = 30 * time.Second
	dayWindowStartHour  = 6
	dayWindowEndHour    = 22 // exclusive: day window is 06:00-21:59

	statsRecomputeHour = 3

	vesselCleanupInterval = 5 * time.Minute
	boatProbeInterval     = 5 * time.Second
)

// isDayWindow reports whether t falls in the bridge scrape's faster
// polling window (06:00-21:59 local, spec.md §4.1).
func isDayWindow(t time.Time) bool {
	h := t.Hour()
	return h >= dayWindowStartHour && h < dayWindowEndHour
}

// BridgeScrapeInterval is the day/night pacing function for the scrape job.
func BridgeScrapeInterval(t time.Time) time.Duration {
	if isDayWindow(t) {
		return dayScrapeInterval
	}
	return nightScrapeInterval
}

// UntilNextStatsRecompute returns the wait until the next statsRecomputeHour
// local time, today if not yet passed, tomorrow otherwise.
func UntilNextStatsRecompute(t time.Time) time.Duration {
	next := time.Date(t.Year(), t.Month(), t.Day(), statsRecomputeHour, 0, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(t)
}

// NewBridgeScrapeJob drives the Bridge Scraper's Tick on the day/night
// cadence.
func NewBridgeScrapeJob(tick func(ctx context.Context)) Job {
	return Job{
		Name:         "bridge_scrape",
		NextInterval: BridgeScrapeInterval,
		Run: func(ctx context.Context) time.Duration {
			tick(ctx)
			return 0
		},
	}
}

// NewStatsRecomputeJob runs once daily at statsRecomputeHour local time.
func NewStatsRecomputeJob(recompute func(ctx context.Context)) Job {
	return Job{
		Name:         "stats_recompute",
		NextInterval: UntilNextStatsRecompute,
		Run: func(ctx context.Context) time.Duration {
			recompute(ctx)
			return 0
		},
	}
}

// NewVesselCleanupJob evicts stale/docked/out-of-region vessels every
// vesselCleanupInterval.
func NewVesselCleanupJob(cleanup func()) Job {
	return Job{
		Name:         "vessel_cleanup",
		NextInterval: func(time.Time) time.Duration { return vesselCleanupInterval },
		Run: func(ctx context.Context) time.Duration {
			cleanup()
			return 0
		},
	}
}

// NewAISPollJob polls the AIS HTTP aggregator, pacing itself by the
// poller's own exponential backoff (61s-300s) rather than a fixed interval.
func NewAISPollJob(poll func(ctx context.Context) time.Duration) Job {
	return Job{
		Name:         "ais_http_poll",
		NextInterval: func(time.Time) time.Duration { return 61 * time.Second },
		Run: func(ctx context.Context) time.Duration {
			return poll(ctx)
		},
	}
}

// NewBoatProbeJob compares the current boats payload against the last
// broadcast one every boatProbeInterval and pushes only on change.
func NewBoatProbeJob(probe func(ctx context.Context)) Job {
	return Job{
		Name:         "boat_probe",
		NextInterval: func(time.Time) time.Duration { return boatProbeInterval },
		Run: func(ctx context.Context) time.Duration {
			probe(ctx)
			return 0
		},
	}
}
