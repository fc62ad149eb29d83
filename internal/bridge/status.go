// Package bridge implements the Bridge Scraper (spec.md §4.4): fetches each
// region's upstream JSON, normalizes it, merges it against the in-memory
// snapshot, and drives prediction, attribution, and history.
package bridge

import (
	"strings"

	"github.com/Averyy/bridge-up/internal/model"
)

// normalizeStatus maps a raw upstream status string to the normalized set,
// per the table in spec.md §4.4.
func normalizeStatus(raw string) model.Status {
	switch {
	case strings.Contains(raw, "Available (raising soon)"):
		return model.StatusClosingSoon
	case strings.Contains(raw, "Unavailable (lowering)"):
		return model.StatusOpening
	case strings.Contains(raw, "Unavailable (raising)"):
		return model.StatusClosing
	case strings.Contains(raw, "Unavailable (work in progress)"):
		return model.StatusConstruction
	case strings.Contains(raw, "Available"):
		return model.StatusOpen
	case strings.Contains(raw, "Unavailable"):
		return model.StatusClosed
	default:
		return model.StatusUnknown
	}
}

// closureDurationMinutes is the expected-duration table for vessel-lift
// closures (spec.md §4.4), keyed by closure type and the upstream's
// "longer" flag.
func closureDurationMinutes(t model.ClosureType, longer bool) *int {
	var base int
	switch t {
	case model.ClosureCommercialVessel:
		base = 15
	case model.ClosurePleasureCraft:
		base = 10
	case model.ClosureNextArrival:
		base = 15
	default:
		return nil
	}
	if longer {
		base *= 2
	}
	return &base
}
