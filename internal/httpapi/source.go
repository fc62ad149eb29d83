// Package httpapi is the thin HTTP gateway over the Bridge Scraper and
// Vessel Registry (spec.md §4.9): /bridges, /bridges/{id}, /boats, /health,
// and the /ws upgrade endpoint.
package httpapi

import (
	"github.com/Averyy/bridge-up/internal/bridge"
	"github.com/Averyy/bridge-up/internal/model"
	"github.com/Averyy/bridge-up/internal/vessel"
)

// Source adapts the Bridge Scraper and Vessel Registry to the single
// read-only view both the REST handlers and the fanout hub need, so
// neither package has to import the other directly.
type Source struct {
	scraper  *bridge.Scraper
	registry *vessel.Registry
}

// NewSource builds a Source over the given scraper and registry.
func NewSource(scraper *bridge.Scraper, registry *vessel.Registry) *Source {
	return &Source{scraper: scraper, registry: registry}
}

// Snapshot returns the current bridge snapshot. Satisfies fanout.DataSource.
func (s *Source) Snapshot() *model.Snapshot {
	return s.scraper.Snapshot()
}

// BoatsPayload returns the current vessel payload. Satisfies fanout.DataSource.
func (s *Source) BoatsPayload() model.VesselsPayload {
	return s.registry.Payload()
}
