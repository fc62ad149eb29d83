// Package attribution implements the responsible-vessel scoring rules
// (spec.md §4.6): a pure function of a bridge's coordinates, its current
// status, and the live vessel list, producing either an MMSI or nil. Like
// internal/predict, nothing in the retrieval pack scores candidates this
// way, so the scoring tables are written directly from the spec.
package attribution

import (
	"github.com/Averyy/bridge-up/internal/geo"
	"github.com/Averyy/bridge-up/internal/model"
)

const (
	closingSoonRadiusKm   = 7.0
	closingSoonThreshold  = 0.25
	closedRadiusKm        = 4.0
	closedMinSpeedKnots   = 0.5
	closedThreshold       = 0.3
	stationaryRadiusM     = 250.0
	stationarySpeedKnots  = 0.1
	movingSpeedForAway    = 1.5
	headingToleranceDeg   = 60.0
	maxBaseScore          = 3.0
)

// candidate is a scored vessel awaiting the threshold/tie-break comparison.
type candidate struct {
	mmsi       int
	score      float64
	distanceKm float64
}

// Responsible picks the vessel judged most likely to have caused the
// bridge's current closure, or nil if no candidate qualifies.
func Responsible(bridge model.Coordinates, status model.Status, vessels []model.Vessel) *int {
	switch status {
	case model.StatusClosingSoon:
		return pick(scoreClosingSoon(bridge, vessels))
	case model.StatusClosed, model.StatusClosing:
		return pick(scoreClosedOrClosing(bridge, vessels))
	default:
		return nil
	}
}

func pick(candidates []candidate) *int {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score || (c.score == best.score && c.distanceKm < best.distanceKm) {
			best = c
		}
	}
	mmsi := best.mmsi
	return &mmsi
}

func baseScore(distanceKm float64) float64 {
	s := 1.0 / (distanceKm + 0.1)
	if s > maxBaseScore {
		s = maxBaseScore
	}
	return s
}

// vesselHeading returns the course if the vessel is moving, else its bow
// heading; ok is false if neither is known.
func vesselHeading(v model.Vessel) (float64, bool) {
	if v.SpeedKnots >= stationarySpeedKnots && v.Course != nil {
		return *v.Course, true
	}
	if v.Heading != nil {
		return *v.Heading, true
	}
	return 0, false
}

func headingState(bridge, vessel model.Coordinates, v model.Vessel) string {
	heading, ok := vesselHeading(v)
	if !ok {
		return "unknown"
	}
	bearing := geo.InitialBearing(vessel.Lat, vessel.Lng, bridge.Lat, bridge.Lng)
	if geo.IsHeadingToward(heading, bearing, headingToleranceDeg) {
		return "toward"
	}
	return "away"
}

func speedBonus(speedKnots float64) float64 {
	bonus := 0.0
	if speedKnots > 1.0 {
		bonus += 0.2
	}
	if speedKnots > 4.0 {
		bonus += 0.2
	}
	return bonus
}

func scoreClosingSoon(bridge model.Coordinates, vessels []model.Vessel) []candidate {
	var out []candidate
	for _, v := range vessels {
		distanceKm := geo.HaversineKm(bridge.Lat, bridge.Lng, v.Position.Lat, v.Position.Lng)
		if distanceKm > closingSoonRadiusKm {
			continue
		}
		base := baseScore(distanceKm)
		state := headingState(bridge, v.Position, v)

		var m float64
		switch {
		case v.SpeedKnots >= movingSpeedForAway && state == "away":
			m = 0.0
		case v.SpeedKnots >= stationarySpeedKnots && state == "toward":
			m = 2.0 + speedBonus(v.SpeedKnots)
		case v.SpeedKnots >= stationarySpeedKnots && state == "unknown":
			m = 1.0
		case v.SpeedKnots >= stationarySpeedKnots && state == "away":
			// moving but below the hard away-cutoff: 0.1-1.5 kn
			m = 0.1
		case distanceKm*1000 <= stationaryRadiusM && state == "toward":
			m = 2.5
		case distanceKm*1000 <= stationaryRadiusM && state == "unknown":
			m = 0.1
		case distanceKm*1000 <= stationaryRadiusM && state == "away":
			m = 0.05
		case state == "toward":
			m = 0.2
		case state == "unknown":
			m = 0.05
		default: // away, beyond 250m, stationary
			m = 0.02
		}

		score := base * m
		if score >= closingSoonThreshold {
			out = append(out, candidate{mmsi: v.MMSI, score: score, distanceKm: distanceKm})
		}
	}
	return out
}

func scoreClosedOrClosing(bridge model.Coordinates, vessels []model.Vessel) []candidate {
	var out []candidate
	for _, v := range vessels {
		if v.SpeedKnots < closedMinSpeedKnots {
			continue
		}
		distanceKm := geo.HaversineKm(bridge.Lat, bridge.Lng, v.Position.Lat, v.Position.Lng)
		if distanceKm > closedRadiusKm {
			continue
		}
		score := baseScore(distanceKm)
		if score >= closedThreshold {
			out = append(out, candidate{mmsi: v.MMSI, score: score, distanceKm: distanceKm})
		}
	}
	return out
}
