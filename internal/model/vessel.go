package model

import "time"

// Region identifies one of the waterway's fixed geographic areas.
type Region string

const (
	RegionWelland  Region = "welland"
	RegionMontreal Region = "montreal"
)

// Source identifies where a vessel record's data came from.
type Source string

const (
	SourceUDP  Source = "udp"
	SourceHTTP Source = "http"
)

// MinMMSI and MaxMMSI bound the valid ship-MMSI range (spec.md glossary).
const (
	MinMMSI = 200_000_000
	MaxMMSI = 799_999_999
)

// Dimensions is a vessel's length/width in meters.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Vessel is the in-memory record the Registry keeps per MMSI (spec.md §3).
type Vessel struct {
	MMSI          int         `json:"mmsi"`
	Name          *string     `json:"name,omitempty"`
	TypeCode      *int        `json:"type_code,omitempty"`
	TypeName      string      `json:"type_name"`
	TypeCategory  string      `json:"type_category"`
	Position      Coordinates `json:"-"`
	Heading       *float64    `json:"heading,omitempty"`
	Course        *float64    `json:"course,omitempty"`
	SpeedKnots    float64     `json:"speed_knots"`
	Destination   *string     `json:"destination,omitempty"`
	Dimensions    *Dimensions `json:"dimensions,omitempty"`
	LastSeen      time.Time   `json:"last_seen"`
	LastMoved     time.Time   `json:"last_moved"`
	Source        Source      `json:"source"`
	Region        Region      `json:"region"`
}

// Clone returns a deep copy of the vessel record.
func (v Vessel) Clone() Vessel {
	out := v
	if v.Name != nil {
		s := *v.Name
		out.Name = &s
	}
	if v.TypeCode != nil {
		n := *v.TypeCode
		out.TypeCode = &n
	}
	if v.Heading != nil {
		h := *v.Heading
		out.Heading = &h
	}
	if v.Course != nil {
		c := *v.Course
		out.Course = &c
	}
	if v.Destination != nil {
		d := *v.Destination
		out.Destination = &d
	}
	if v.Dimensions != nil {
		d := *v.Dimensions
		out.Dimensions = &d
	}
	return out
}

// VesselView is the wire shape for the vessels payload (spec.md §6): it
// drops last_moved (internal retention bookkeeping, not a public field) and
// nests position.
type VesselView struct {
	MMSI         int         `json:"mmsi"`
	Name         *string     `json:"name"`
	TypeName     string      `json:"type_name"`
	TypeCategory string      `json:"type_category"`
	Position     LatLon      `json:"position"`
	Heading      *float64    `json:"heading"`
	Course       *float64    `json:"course"`
	SpeedKnots   float64     `json:"speed_knots"`
	Destination  *string     `json:"destination"`
	Dimensions   *Dimensions `json:"dimensions"`
	LastSeen     time.Time   `json:"last_seen"`
	Source       Source      `json:"source"`
	Region       Region      `json:"region"`
}

// LatLon is the position shape used on the wire for vessels (lat/lon, as
// opposed to bridges' lat/lng).
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ToView projects a Vessel onto its wire representation.
func (v Vessel) ToView() VesselView {
	return VesselView{
		MMSI:         v.MMSI,
		Name:         v.Name,
		TypeName:     v.TypeName,
		TypeCategory: v.TypeCategory,
		Position:     LatLon{Lat: v.Position.Lat, Lon: v.Position.Lng},
		Heading:      v.Heading,
		Course:       v.Course,
		SpeedKnots:   v.SpeedKnots,
		Destination:  v.Destination,
		Dimensions:   v.Dimensions,
		LastSeen:     v.LastSeen,
		Source:       v.Source,
		Region:       v.Region,
	}
}

// VesselsPayload is the full /boats and "boats" broadcast payload (spec.md §6).
type VesselsPayload struct {
	LastUpdated time.Time    `json:"last_updated"`
	VesselCount int          `json:"vessel_count"`
	Vessels     []VesselView `json:"vessels"`
}
