package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Averyy/bridge-up/internal/bridge"
	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/fanout"
	"github.com/Averyy/bridge-up/internal/model"
	"github.com/Averyy/bridge-up/internal/vessel"
	"github.com/go-chi/chi/v5"
)

// dataCacheControl is applied to every data endpoint's response; spec.md §4.9
// caps this at 10s so the gateway never serves state meaningfully staler
// than a client could get straight from the WebSocket push.
const dataCacheControl = "public, max-age=5"

// Handlers holds the read-only dependencies every route needs.
type Handlers struct {
	scraper  *bridge.Scraper
	registry *vessel.Registry
	hub      *fanout.Hub
	source   *Source
	clock    clock.Clock
}

// New builds the Handlers bundle shared by every route, including the /ws
// upgrade handler.
func New(scraper *bridge.Scraper, registry *vessel.Registry, hub *fanout.Hub, c clock.Clock) *Handlers {
	return &Handlers{
		scraper:  scraper,
		registry: registry,
		hub:      hub,
		source:   NewSource(scraper, registry),
		clock:    c,
	}
}

// bridgeResponse merges a bridge record with its ID, which model.Bridge
// omits from its own JSON tags so it can be keyed by the snapshot's map
// instead.
type bridgeResponse struct {
	ID     string           `json:"id"`
	Static model.BridgeStatic `json:"static"`
	Live   model.BridgeLive   `json:"live"`
}

func toBridgeResponse(id string, b *model.Bridge) bridgeResponse {
	return bridgeResponse{ID: id, Static: b.Static, Live: b.Live.Clone()}
}

// Bridges serves GET /bridges: the full current snapshot.
func (h *Handlers) Bridges(w http.ResponseWriter, r *http.Request) {
	snap := h.scraper.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", dataCacheControl)
	json.NewEncoder(w).Encode(snap)
}

// BridgeByID serves GET /bridges/{id}: one bridge's static+live record, or
// 404 if the id isn't in the current snapshot.
func (h *Handlers) BridgeByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.scraper.Snapshot()
	b, ok := snap.Bridges[id]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown bridge id"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", dataCacheControl)
	json.NewEncoder(w).Encode(toBridgeResponse(id, b))
}

// Boats serves GET /boats: the current vessel registry view.
func (h *Handlers) Boats(w http.ResponseWriter, r *http.Request) {
	payload := h.registry.Payload()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", dataCacheControl)
	json.NewEncoder(w).Encode(payload)
}
