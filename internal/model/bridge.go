// Package model holds the shared data types for bridges, vessels, and the
// snapshot that unions them. Nothing in this package performs I/O.
package model

import "time"

// SnapshotSchemaVersion is bumped whenever the on-disk snapshot shape changes.
const SnapshotSchemaVersion = 1

// Status is the normalized bridge status (spec.md §4.4).
type Status string

const (
	StatusOpen         Status = "Open"
	StatusClosed       Status = "Closed"
	StatusClosingSoon  Status = "Closing soon"
	StatusClosing      Status = "Closing"
	StatusOpening      Status = "Opening"
	StatusConstruction Status = "Construction"
	StatusUnknown      Status = "Unknown"
)

// Coordinates is a point in WGS84 lat/lon.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Window is a {lower, upper} bound of instants, used for predictions and
// confidence intervals.
type Window struct {
	Lower time.Time `json:"lower"`
	Upper time.Time `json:"upper"`
}

// MinutesWindow is a {lower, upper} bound expressed in minutes, used for
// statistics confidence intervals.
type MinutesWindow struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// ClosureType enumerates the kinds of upcoming-closure entries a bridge can
// report.
type ClosureType string

const (
	ClosureCommercialVessel ClosureType = "Commercial Vessel"
	ClosurePleasureCraft    ClosureType = "Pleasure Craft"
	ClosureNextArrival      ClosureType = "Next Arrival"
	ClosureConstruction     ClosureType = "Construction"
)

// UpcomingClosure is one entry in a bridge's upcoming_closures list.
type UpcomingClosure struct {
	Type                     ClosureType `json:"type"`
	Time                     time.Time   `json:"time"`
	Longer                   bool        `json:"longer,omitempty"`
	ExpectedDurationMinutes  *int        `json:"expected_duration_minutes,omitempty"`
	EndTime                  *time.Time  `json:"end_time,omitempty"`
}

// HistogramBuckets is the closure-duration distribution (spec.md §3).
type HistogramBuckets struct {
	Under9m int `json:"under_9m"`
	M10to15 int `json:"10_15m"`
	M16to30 int `json:"16_30m"`
	M31to60 int `json:"31_60m"`
	Over60m int `json:"over_60m"`
}

// Statistics is the derived closure-history summary for a bridge (spec.md §3).
type Statistics struct {
	AverageClosureDuration *int              `json:"average_closure_duration"`
	ClosureCI              *MinutesWindow    `json:"closure_ci"`
	AverageRaisingSoon     *int              `json:"average_raising_soon"`
	RaisingSoonCI          *MinutesWindow    `json:"raising_soon_ci"`
	ClosureDurations       HistogramBuckets  `json:"closure_durations"`
	TotalEntries           int               `json:"total_entries"`
}

// Clone returns a deep copy of the statistics block.
func (s Statistics) Clone() Statistics {
	out := s
	if s.AverageClosureDuration != nil {
		v := *s.AverageClosureDuration
		out.AverageClosureDuration = &v
	}
	if s.ClosureCI != nil {
		v := *s.ClosureCI
		out.ClosureCI = &v
	}
	if s.AverageRaisingSoon != nil {
		v := *s.AverageRaisingSoon
		out.AverageRaisingSoon = &v
	}
	if s.RaisingSoonCI != nil {
		v := *s.RaisingSoonCI
		out.RaisingSoonCI = &v
	}
	return out
}

// BridgeStatic is the immutable-for-process-lifetime part of a bridge record.
type BridgeStatic struct {
	ID          string      `json:"-"`
	Name        string      `json:"name"`
	Region      string      `json:"region"`
	RegionShort string      `json:"region_short"`
	Coordinates Coordinates `json:"coordinates"`
	Statistics  Statistics  `json:"statistics"`
}

// Clone returns a deep copy of the static record. Statistics is recomputed
// in place by the Scraper, so it needs the same deep-copy treatment as the
// live record.
func (s BridgeStatic) Clone() BridgeStatic {
	out := s
	out.Statistics = s.Statistics.Clone()
	return out
}

// BridgeLive is the mutable part of a bridge record, owned by the Scraper.
type BridgeLive struct {
	Status                Status            `json:"status"`
	LastUpdated           time.Time         `json:"last_updated"`
	Predicted             *Window           `json:"predicted"`
	UpcomingClosures      []UpcomingClosure `json:"upcoming_closures"`
	ResponsibleVesselMMSI *int              `json:"responsible_vessel_mmsi"`
}

// Clone returns a deep copy of the live record, safe to hand to a reader
// outside the writer's lock.
func (b BridgeLive) Clone() BridgeLive {
	out := b
	if b.Predicted != nil {
		p := *b.Predicted
		out.Predicted = &p
	}
	if b.ResponsibleVesselMMSI != nil {
		v := *b.ResponsibleVesselMMSI
		out.ResponsibleVesselMMSI = &v
	}
	out.UpcomingClosures = make([]UpcomingClosure, len(b.UpcomingClosures))
	for i, c := range b.UpcomingClosures {
		cc := c
		if c.ExpectedDurationMinutes != nil {
			v := *c.ExpectedDurationMinutes
			cc.ExpectedDurationMinutes = &v
		}
		if c.EndTime != nil {
			v := *c.EndTime
			cc.EndTime = &v
		}
		out.UpcomingClosures[i] = cc
	}
	return out
}

// Bridge is the denormalized union of static + live state for one bridge, as
// served in the snapshot.
type Bridge struct {
	Static BridgeStatic `json:"static"`
	Live   BridgeLive   `json:"live"`
}

// Clone returns a deep copy of the bridge record, safe to hand to a reader
// outside the writer's lock.
func (b *Bridge) Clone() *Bridge {
	return &Bridge{
		Static: b.Static.Clone(),
		Live:   b.Live.Clone(),
	}
}

// AvailableBridge is one entry in the snapshot's available_bridges index.
type AvailableBridge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RegionShort string `json:"region_short"`
	Region      string `json:"region"`
}

// Snapshot is the canonical union of every bridge's static+live record.
type Snapshot struct {
	SchemaVersion     int                       `json:"schema_version"`
	LastUpdated       time.Time                 `json:"last_updated"`
	AvailableBridges  []AvailableBridge         `json:"available_bridges"`
	Bridges           map[string]*Bridge        `json:"bridges"`
}

// NewSnapshot returns an empty, initialized snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Bridges:       make(map[string]*Bridge),
	}
}

// Clone returns a deep copy of the snapshot, safe to hand to a reader outside
// the Scraper's lock (spec.md §3, §9: readers take deep-copy snapshots
// before lock release).
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		SchemaVersion:    s.SchemaVersion,
		LastUpdated:      s.LastUpdated,
		AvailableBridges: make([]AvailableBridge, len(s.AvailableBridges)),
		Bridges:          make(map[string]*Bridge, len(s.Bridges)),
	}
	copy(out.AvailableBridges, s.AvailableBridges)
	for id, b := range s.Bridges {
		out.Bridges[id] = b.Clone()
	}
	return out
}

// HistoryEntry is one entry in a bridge's append-only history file (spec.md §3).
type HistoryEntry struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    Status     `json:"status"`
	Duration  *float64   `json:"duration,omitempty"` // wall-clock seconds
}

// MaxHistoryEntries is the hard cap on retained history entries per bridge.
const MaxHistoryEntries = 300
