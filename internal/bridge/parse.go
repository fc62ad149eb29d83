package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/model"
)

// rawBridge is the normalized-from-either-shape intermediate record, before
// it's merged against the stored live record.
type rawBridge struct {
	UpstreamKey      string
	Status           model.Status
	UpcomingClosures []model.UpcomingClosure
}

// seawayJSON is one of the two known upstream shapes: an array of bridge
// objects keyed by a numeric id, carrying a scheduled-closure list and a
// vessel-lift list.
type seawayJSON struct {
	Bridges []struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		ScheduledWork  []struct {
			Start string  `json:"start"`
			End   *string `json:"end"`
		} `json:"scheduledClosures"`
		BridgeLiftList []struct {
			Type      string `json:"vesselType"`
			Time      string `json:"time"`
			Longer    bool   `json:"longer"`
			EventType int    `json:"eventTypeId"`
		} `json:"bridgeLiftList"`
	} `json:"bridges"`
}

func parseSeawayJSON(body []byte) ([]rawBridge, error) {
	var doc seawayJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse seaway_json: %w", err)
	}
	if len(doc.Bridges) == 0 {
		return nil, fmt.Errorf("empty seaway_json response")
	}

	out := make([]rawBridge, 0, len(doc.Bridges))
	for _, b := range doc.Bridges {
		rb := rawBridge{UpstreamKey: b.ID, Status: normalizeStatus(b.Status)}

		for _, sc := range b.ScheduledWork {
			start, err := time.Parse(time.RFC3339, sc.Start)
			if err != nil {
				continue
			}
			closure := model.UpcomingClosure{Type: model.ClosureConstruction, Time: start}
			if sc.End != nil {
				if end, err := time.Parse(time.RFC3339, *sc.End); err == nil {
					closure.EndTime = &end
				}
			}
			rb.UpcomingClosures = append(rb.UpcomingClosures, closure)
		}

		for _, lift := range b.BridgeLiftList {
			if lift.EventType != 1 {
				continue
			}
			t, err := time.Parse(time.RFC3339, lift.Time)
			if err != nil {
				continue
			}
			closureType := closureTypeFromUpstream(lift.Type)
			closure := model.UpcomingClosure{
				Type:                    closureType,
				Time:                    t,
				Longer:                  lift.Longer,
				ExpectedDurationMinutes: closureDurationMinutes(closureType, lift.Longer),
			}
			rb.UpcomingClosures = append(rb.UpcomingClosures, closure)
		}

		out = append(out, rb)
	}
	return out, nil
}

// legacyTable is the other known upstream shape: a flat table keyed by
// bridge number, status as a table row string, no structured closure list
// beyond a single next-lift field.
type legacyTable struct {
	Rows []struct {
		BridgeNumber string  `json:"bridgeNumber"`
		StatusText   string  `json:"statusText"`
		NextLiftType string  `json:"nextLiftType"`
		NextLiftTime *string `json:"nextLiftTime"`
		NextLiftLong bool    `json:"nextLiftLonger"`
	} `json:"rows"`
}

func parseLegacyTable(body []byte) ([]rawBridge, error) {
	var doc legacyTable
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse legacy_table: %w", err)
	}
	if len(doc.Rows) == 0 {
		return nil, fmt.Errorf("empty legacy_table response")
	}

	out := make([]rawBridge, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		rb := rawBridge{UpstreamKey: row.BridgeNumber, Status: normalizeStatus(row.StatusText)}

		if row.NextLiftTime != nil {
			t, err := time.Parse(time.RFC3339, *row.NextLiftTime)
			if err == nil {
				closureType := closureTypeFromUpstream(row.NextLiftType)
				rb.UpcomingClosures = append(rb.UpcomingClosures, model.UpcomingClosure{
					Type:                    closureType,
					Time:                    t,
					Longer:                  row.NextLiftLong,
					ExpectedDurationMinutes: closureDurationMinutes(closureType, row.NextLiftLong),
				})
			}
		}

		out = append(out, rb)
	}
	return out, nil
}

func closureTypeFromUpstream(raw string) model.ClosureType {
	switch raw {
	case "commercial", "Commercial Vessel":
		return model.ClosureCommercialVessel
	case "pleasure", "Pleasure Craft":
		return model.ClosurePleasureCraft
	case "next_arrival", "Next Arrival":
		return model.ClosureNextArrival
	default:
		return model.ClosureCommercialVessel
	}
}

// parseByShape dispatches to the parser for the given upstream shape.
func parseByShape(shape config.UpstreamShape, body []byte) ([]rawBridge, error) {
	switch shape {
	case config.ShapeSeawayJSON:
		return parseSeawayJSON(body)
	case config.ShapeLegacyTable:
		return parseLegacyTable(body)
	default:
		return nil, fmt.Errorf("unknown upstream shape %q", shape)
	}
}

// otherShape returns the alternate shape, used for endpoint-discovery
// fallback on failure (spec.md §4.4 step 2).
func otherShape(s config.UpstreamShape) config.UpstreamShape {
	if s == config.ShapeSeawayJSON {
		return config.ShapeLegacyTable
	}
	return config.ShapeSeawayJSON
}
