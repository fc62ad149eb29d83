// Package predict implements the prediction engine (spec.md §4.5): a pure
// function of a bridge's current state that estimates when it will next
// change. Nothing in the teacher or the rest of the retrieval pack performs
// this kind of confidence-interval arithmetic, so this package is written
// directly from the spec's formulas, not adapted from an existing file.
package predict

import (
	"time"

	"github.com/Averyy/bridge-up/internal/model"
)

// DefaultClosureCI is used when a bridge has fewer than 2 recorded closures.
var DefaultClosureCI = model.MinutesWindow{Lower: 15, Upper: 20}

// DefaultRaisingSoonCI is used when a bridge has fewer than 2 recorded
// raising-soon lead times.
var DefaultRaisingSoonCI = model.MinutesWindow{Lower: 3, Upper: 8}

// isActiveClosureType reports whether t is a boat-closure type that can
// carry an expected-duration estimate.
func isActiveClosureType(t model.ClosureType) bool {
	switch t {
	case model.ClosureCommercialVessel, model.ClosurePleasureCraft, model.ClosureNextArrival:
		return true
	}
	return false
}

// Predict computes the prediction window for a bridge's current state, or
// nil if no useful prediction can be made.
func Predict(status model.Status, lastUpdated time.Time, stats model.Statistics, upcoming []model.UpcomingClosure, now time.Time) *model.Window {
	switch status {
	case model.StatusClosed, model.StatusConstruction:
		return predictClosedOrConstruction(status, lastUpdated, stats, upcoming, now)
	case model.StatusClosingSoon:
		return predictClosingSoon(stats, upcoming, now, lastUpdated)
	default:
		return nil
	}
}

func predictClosedOrConstruction(status model.Status, lastUpdated time.Time, stats model.Statistics, upcoming []model.UpcomingClosure, now time.Time) *model.Window {
	// If a matching closure already has a known end_time in the future and
	// a time in the past, that end_time is authoritative.
	for _, c := range upcoming {
		if c.EndTime != nil && c.EndTime.After(now) && c.Time.Before(now) {
			return &model.Window{Lower: *c.EndTime, Upper: *c.EndTime}
		}
	}

	if status == model.StatusConstruction {
		// Construction with no known end_time: nothing to predict.
		return nil
	}

	elapsed := now.Sub(lastUpdated).Minutes()

	ci := DefaultClosureCI
	if stats.ClosureCI != nil {
		ci = *stats.ClosureCI
	}

	var lower, upper float64
	if active, ok := activeBoatClosure(upcoming, now); ok && active.ExpectedDurationMinutes != nil {
		e := float64(*active.ExpectedDurationMinutes)
		lower = (e+float64(ci.Lower))/2 - elapsed
		upper = (e+float64(ci.Upper))/2 - elapsed
	} else {
		lower = float64(ci.Lower) - elapsed
		upper = float64(ci.Upper) - elapsed
	}

	if lower <= 0 && upper <= 0 {
		return nil
	}
	if lower < 0 {
		lower = 0
	}
	if upper < 0 {
		upper = 0
	}

	return &model.Window{
		Lower: now.Add(time.Duration(lower * float64(time.Minute))),
		Upper: now.Add(time.Duration(upper * float64(time.Minute))),
	}
}

func activeBoatClosure(upcoming []model.UpcomingClosure, now time.Time) (model.UpcomingClosure, bool) {
	for _, c := range upcoming {
		if isActiveClosureType(c.Type) && !c.Time.After(now) {
			return c, true
		}
	}
	return model.UpcomingClosure{}, false
}

func predictClosingSoon(stats model.Statistics, upcoming []model.UpcomingClosure, now, lastUpdated time.Time) *model.Window {
	if len(upcoming) == 0 {
		return nil
	}
	next := upcoming[0]

	// Already past, or within the next hour: the client surfaces the
	// literal time instead of a computed window.
	if !next.Time.After(now) {
		return nil
	}
	if next.Time.Sub(now) <= time.Hour {
		return nil
	}

	elapsed := now.Sub(lastUpdated).Minutes()
	ci := DefaultRaisingSoonCI
	if stats.RaisingSoonCI != nil {
		ci = *stats.RaisingSoonCI
	}

	lower := float64(ci.Lower) - elapsed
	upper := float64(ci.Upper) - elapsed

	if lower <= 0 && upper <= 0 {
		return nil
	}
	if lower < 0 {
		lower = 0
	}
	if upper < 0 {
		upper = 0
	}

	return &model.Window{
		Lower: now.Add(time.Duration(lower * float64(time.Minute))),
		Upper: now.Add(time.Duration(upper * float64(time.Minute))),
	}
}
