package fanout

import (
	"log/slog"
	"sync"

	"github.com/Averyy/bridge-up/internal/model"
)

// Hub tracks every connected client and dispatches broadcasts to whichever
// subset has a matching subscription (spec.md §4.8).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of connected clients, for /health.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshotClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// BroadcastBridges sends the bridges channel to every client subscribed to
// "bridges" (full snapshot) or "bridges:<region>" (filtered to that
// region), for each region that changed this tick.
func (h *Hub) BroadcastBridges(snap *model.Snapshot, changedRegions []string) {
	changed := make(map[string]struct{}, len(changedRegions))
	for _, r := range changedRegions {
		changed[r] = struct{}{}
	}

	for _, c := range h.snapshotClients() {
		channels := c.subscribedTo("bridges")
		for _, ch := range channels {
			if ch == "bridges" {
				c.sendFrame(mustDataFrame("bridges", snap))
				continue
			}
			region := ch[len("bridges:"):]
			if _, ok := changed[region]; !ok {
				continue
			}
			filtered := filterSnapshotByRegionShort(snap, region)
			c.sendFrame(mustDataFrame("bridges", filtered))
		}
	}
}

// BroadcastBoats sends the boats channel to every subscribed client,
// filtering vessels to the client's region sub-channel when one is set.
func (h *Hub) BroadcastBoats(payload model.VesselsPayload) {
	for _, c := range h.snapshotClients() {
		channels := c.subscribedTo("boats")
		for _, ch := range channels {
			if ch == "boats" {
				c.sendFrame(mustDataFrame("boats", payload))
				continue
			}
			region := ch[len("boats:"):]
			c.sendFrame(mustDataFrame("boats", filterVesselsByRegion(payload, model.Region(region))))
		}
	}
}

func mustDataFrame(channelType string, data any) []byte {
	frame, err := newDataFrame(channelType, data)
	if err != nil {
		slog.Error("marshal broadcast frame", "type", channelType, "error", err)
		return nil
	}
	return frame
}

func filterSnapshotByRegionShort(snap *model.Snapshot, regionShort string) model.Snapshot {
	out := model.Snapshot{
		SchemaVersion: snap.SchemaVersion,
		LastUpdated:   snap.LastUpdated,
		Bridges:       make(map[string]*model.Bridge),
	}
	for _, ab := range snap.AvailableBridges {
		if ab.RegionShort == regionShort {
			out.AvailableBridges = append(out.AvailableBridges, ab)
		}
	}
	for id, b := range snap.Bridges {
		if b.Static.RegionShort == regionShort {
			out.Bridges[id] = b
		}
	}
	return out
}

func filterVesselsByRegion(payload model.VesselsPayload, region model.Region) model.VesselsPayload {
	out := model.VesselsPayload{LastUpdated: payload.LastUpdated}
	for _, v := range payload.Vessels {
		if v.Region == region {
			out.Vessels = append(out.Vessels, v)
		}
	}
	out.VesselCount = len(out.Vessels)
	return out
}
