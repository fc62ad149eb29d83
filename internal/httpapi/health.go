package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	navigationSeasonActivityThreshold = 24 * time.Hour
	offSeasonActivityThreshold        = 168 * time.Hour
)

// inNavigationSeason reports whether t falls within the Seaway's navigation
// season, mid-March through November, by local date.
func inNavigationSeason(t time.Time) bool {
	m, d := t.Month(), t.Day()
	if m < time.March || m > time.November {
		return false
	}
	if m == time.March && d < 15 {
		return false
	}
	return true
}

// bridgeActivityThreshold is the seasonal staleness threshold for the last
// observed bridge change (spec.md §6).
func bridgeActivityThreshold(now time.Time) time.Duration {
	if inNavigationSeason(now) {
		return navigationSeasonActivityThreshold
	}
	return offSeasonActivityThreshold
}

// HealthResponse is the exact wire shape of GET /health (spec.md §6).
type HealthResponse struct {
	Status                string    `json:"status"`
	StatusMessage         string    `json:"status_message"`
	SeawayStatus          string    `json:"seaway_status"`
	SeawayMessage         string    `json:"seaway_message"`
	BridgeActivity        string    `json:"bridge_activity"`
	BridgeActivityMessage string    `json:"bridge_activity_message"`
	LastUpdated           time.Time `json:"last_updated"`
	LastScrape            time.Time `json:"last_scrape"`
	LastScrapeHadChanges  bool      `json:"last_scrape_had_changes"`
	StatisticsLastUpdated time.Time `json:"statistics_last_updated"`
	BridgesCount          int       `json:"bridges_count"`
	WebsocketClients      int       `json:"websocket_clients"`
}

func (h *Handlers) buildHealth() HealthResponse {
	status := h.scraper.HealthStatus()
	snap := h.scraper.Snapshot()
	now := h.clock.Now()

	seawayStatus, seawayMessage := "ok", "all regions reporting"
	if n := len(status.FailingRegions); n > 0 {
		seawayStatus = "degraded"
		seawayMessage = fmt.Sprintf("%d region(s) in backoff: %s", n, strings.Join(status.FailingRegions, ", "))
	}

	activityStatus, activityMessage := "ok", "bridge data is current"
	threshold := bridgeActivityThreshold(now)
	if snap.LastUpdated.IsZero() {
		activityStatus = "stale"
		activityMessage = "no bridge update observed yet"
	} else if elapsed := now.Sub(snap.LastUpdated); elapsed > threshold {
		activityStatus = "stale"
		activityMessage = fmt.Sprintf("no bridge change observed in %s (threshold %s)", elapsed.Round(time.Minute), threshold)
	}

	overall, overallMessage := "ok", "all systems normal"
	if seawayStatus != "ok" || activityStatus != "ok" {
		overall = "degraded"
		overallMessage = "see seaway_status and bridge_activity for detail"
	}

	return HealthResponse{
		Status:                overall,
		StatusMessage:         overallMessage,
		SeawayStatus:          seawayStatus,
		SeawayMessage:         seawayMessage,
		BridgeActivity:        activityStatus,
		BridgeActivityMessage: activityMessage,
		LastUpdated:           snap.LastUpdated,
		LastScrape:            status.LastScrape,
		LastScrapeHadChanges:  status.LastScrapeHadChanges,
		StatisticsLastUpdated: status.StatisticsLastUpdated,
		BridgesCount:          status.BridgesCount,
		WebsocketClients:      h.hub.ClientCount(),
	}
}

// Health serves GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.buildHealth()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(resp)
}
