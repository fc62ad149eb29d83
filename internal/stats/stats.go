// Package stats implements the statistics engine (spec.md §4.7): a pure,
// idempotent reduction of a bridge's capped history sequence into the
// Statistics block served in the snapshot. As with predict and
// attribution, this arithmetic has no analog in the retrieval pack and is
// written directly from the spec's formulas.
package stats

import (
	"math"

	"github.com/Averyy/bridge-up/internal/model"
)

// isClosedLike reports whether a history entry status contributes to
// closure-duration statistics.
func isClosedLike(s model.Status) bool {
	switch s {
	case model.StatusClosed, model.StatusConstruction, model.StatusClosing:
		return true
	}
	return false
}

func isClosingSoonLike(s model.Status) bool {
	return s == model.StatusClosingSoon
}

// Compute derives the Statistics block from a bridge's history, newest-first,
// already capped at model.MaxHistoryEntries by the caller's store.
func Compute(history []model.HistoryEntry) model.Statistics {
	var closureMinutes, raisingSoonMinutes []float64

	for _, e := range history {
		if e.EndTime == nil || e.Duration == nil {
			// Still open: not a completed interval, drop.
			continue
		}
		minutes := math.Round(*e.Duration / 60.0)
		switch {
		case isClosedLike(e.Status):
			closureMinutes = append(closureMinutes, minutes)
		case isClosingSoonLike(e.Status):
			raisingSoonMinutes = append(raisingSoonMinutes, minutes)
		}
	}

	avgClosure, ciClosure, bucketsClosure := summarize(closureMinutes)
	avgRaising, ciRaising, _ := summarize(raisingSoonMinutes)

	return model.Statistics{
		AverageClosureDuration: avgClosure,
		ClosureCI:              ciClosure,
		AverageRaisingSoon:     avgRaising,
		RaisingSoonCI:          ciRaising,
		ClosureDurations:       bucketsClosure,
		TotalEntries:           len(closureMinutes) + len(raisingSoonMinutes),
	}
}

// summarize computes the rounded average, the 95% CI (nil if fewer than 2
// samples), and the closure-duration histogram for a set of minute values.
func summarize(minutes []float64) (*int, *model.MinutesWindow, model.HistogramBuckets) {
	var buckets model.HistogramBuckets
	if len(minutes) == 0 {
		return nil, nil, buckets
	}

	for _, d := range minutes {
		bucketize(&buckets, d)
	}

	sum := 0.0
	for _, d := range minutes {
		sum += d
	}
	mean := sum / float64(len(minutes))
	avg := int(math.Round(mean))

	var ci *model.MinutesWindow
	if len(minutes) >= 2 {
		var sumSq float64
		for _, d := range minutes {
			diff := d - mean
			sumSq += diff * diff
		}
		variance := sumSq / float64(len(minutes)-1)
		sigma := math.Sqrt(variance)
		margin := 1.96 * sigma / math.Sqrt(float64(len(minutes)))
		ci = &model.MinutesWindow{
			Lower: int(math.Floor(mean - margin)),
			Upper: int(math.Ceil(mean + margin)),
		}
	}

	return &avg, ci, buckets
}

// bucketize adds one closure-duration sample to the histogram, using
// boundaries (0,9], (9,15], (15,30], (30,60], (60,∞).
func bucketize(b *model.HistogramBuckets, minutes float64) {
	switch {
	case minutes <= 9:
		b.Under9m++
	case minutes <= 15:
		b.M10to15++
	case minutes <= 30:
		b.M16to30++
	case minutes <= 60:
		b.M31to60++
	default:
		b.Over60m++
	}
}
