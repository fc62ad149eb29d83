// Package vessel implements the in-memory vessel registry and its two AIS
// ingest paths (spec.md §4.3): a UDP listener that decodes AIS sentences and
// an HTTP poller that queries an aggregator's bounding-box API. Both paths
// submit through the same merge function on Registry.
package vessel

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/geo"
	"github.com/Averyy/bridge-up/internal/model"
)

const (
	movementThresholdMeters = 10.0
	staleAfter              = 15 * time.Minute
	dockedAfter             = 120 * time.Minute
	udpFreshWindow          = 60 * time.Second
)

// Update is one decoded or polled position report awaiting merge.
type Update struct {
	MMSI         int
	Name         *string
	TypeCode     *int
	TypeName     string
	TypeCategory string
	Position     model.Coordinates
	Heading      *float64
	Course       *float64
	SpeedKnots   *float64
	Destination  *string
	Dimensions   *model.Dimensions
	Source       model.Source
	HasPosition  bool
}

// Registry is the single mutex-guarded map from MMSI to vessel record.
type Registry struct {
	regions []config.VesselRegionRoster
	clock   clock.Clock

	mu       sync.Mutex
	vessels  map[int]model.Vessel
}

// NewRegistry creates a Registry that assigns records to regions per the
// given bounding boxes.
func NewRegistry(regions []config.VesselRegionRoster, c clock.Clock) *Registry {
	return &Registry{
		regions: regions,
		clock:   c,
		vessels: make(map[int]model.Vessel),
	}
}

func (r *Registry) regionFor(lat, lon float64) (model.Region, bool) {
	for _, reg := range r.regions {
		if reg.Box.Contains(lat, lon) {
			return model.Region(reg.Name), true
		}
	}
	return "", false
}

// validCoordinates rejects positions outside the valid lat/lon range and the
// sentinel (0,0) "no fix" value.
func validCoordinates(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	return true
}

// Merge applies one update to the registry per the ingestion contract in
// spec.md §4.3. Returns true if the registry's visible state changed.
func (r *Registry) Merge(u Update) bool {
	if u.MMSI < model.MinMMSI || u.MMSI > model.MaxMMSI {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, hasExisting := r.vessels[u.MMSI]

	if !u.HasPosition {
		if !hasExisting {
			// No position and nothing to merge into: drop.
			return false
		}
	} else if !validCoordinates(u.Position.Lat, u.Position.Lng) {
		return false
	}

	now := r.clock.Now()

	region := existing.Region
	lat, lon := existing.Position.Lat, existing.Position.Lng
	if u.HasPosition {
		lat, lon = u.Position.Lat, u.Position.Lng
	}
	newRegion, ok := r.regionFor(lat, lon)
	if !ok {
		// Outside all region bounds: drop.
		return false
	}
	region = newRegion

	if hasExisting && !r.precedenceAllows(existing, u, now) {
		return false
	}

	merged := existing
	merged.MMSI = u.MMSI
	merged.Region = region
	if u.Name != nil {
		merged.Name = u.Name
	}
	if u.TypeCode != nil {
		merged.TypeCode = u.TypeCode
	}
	if u.TypeName != "" {
		merged.TypeName = u.TypeName
	}
	if u.TypeCategory != "" {
		merged.TypeCategory = u.TypeCategory
	}
	if u.Heading != nil {
		merged.Heading = u.Heading
	}
	if u.Course != nil {
		merged.Course = u.Course
	}
	if u.SpeedKnots != nil {
		merged.SpeedKnots = *u.SpeedKnots
	}
	if u.Destination != nil {
		merged.Destination = u.Destination
	}
	if u.Dimensions != nil {
		merged.Dimensions = u.Dimensions
	}
	merged.Source = u.Source
	merged.LastSeen = now

	if u.HasPosition {
		moved := !hasExisting || geo.HaversineMeters(existing.Position.Lat, existing.Position.Lng, u.Position.Lat, u.Position.Lng) > movementThresholdMeters
		merged.Position = u.Position
		if moved {
			merged.LastMoved = now
		} else {
			merged.LastMoved = existing.LastMoved
		}
	}
	if !hasExisting && merged.LastMoved.IsZero() {
		merged.LastMoved = now
	}

	r.vessels[u.MMSI] = merged
	return true
}

// precedenceAllows implements the source-precedence table: UDP always wins;
// an HTTP update is ignored if a UDP update arrived within the last 60s.
func (r *Registry) precedenceAllows(existing model.Vessel, u Update, now time.Time) bool {
	if u.Source == model.SourceUDP {
		return true
	}
	if existing.Source == model.SourceUDP && now.Sub(existing.LastSeen) < udpFreshWindow {
		return false
	}
	return true
}

// Snapshot returns a deep copy of every vessel currently retained, sorted by
// MMSI for deterministic output.
func (r *Registry) Snapshot() []model.Vessel {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Vessel, 0, len(r.vessels))
	for _, v := range r.vessels {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MMSI < out[j].MMSI })
	return out
}

// Cleanup evicts vessels that have gone stale, become permanently docked, or
// drifted outside every configured region's bounds. Returns the number
// removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for mmsi, v := range r.vessels {
		if now.Sub(v.LastSeen) > staleAfter {
			delete(r.vessels, mmsi)
			removed++
			continue
		}
		if now.Sub(v.LastMoved) > dockedAfter {
			delete(r.vessels, mmsi)
			removed++
			continue
		}
		if _, ok := r.regionFor(v.Position.Lat, v.Position.Lng); !ok {
			delete(r.vessels, mmsi)
			removed++
			continue
		}
	}
	if removed > 0 {
		slog.Debug("vessel cleanup", "removed", removed, "remaining", len(r.vessels))
	}
	return removed
}

// Payload renders the current registry state as the /boats wire shape.
func (r *Registry) Payload() model.VesselsPayload {
	vessels := r.Snapshot()
	views := make([]model.VesselView, len(vessels))
	for i, v := range vessels {
		views[i] = v.ToView()
	}
	return model.VesselsPayload{
		LastUpdated: r.clock.Now(),
		VesselCount: len(views),
		Vessels:     views,
	}
}
