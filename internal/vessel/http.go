package vessel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Averyy/bridge-up/internal/model"
)

const (
	httpPollTimeout  = 30 * time.Second
	httpBackoffBase  = 61 * time.Second
	httpBackoffCap   = 300 * time.Second
)

// aisHubRecord is one entry of the aggregator's bounding-box query response.
type aisHubRecord struct {
	MMSI        int      `json:"mmsi"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Speed       *float64 `json:"speed"`
	Heading     *float64 `json:"heading"`
	Course      *float64 `json:"course"`
	Name        *string  `json:"name"`
	Type        *int     `json:"type"`
	Destination *string  `json:"destination"`
	Length      *float64 `json:"length"`
	Width       *float64 `json:"width"`
}

// Poller issues one bounding-box query per tick against the AIS aggregator
// HTTP API, with exponential backoff on failure (spec.md §4.3).
type Poller struct {
	apiKey   string
	endpoint string
	boxQuery string
	client   *http.Client
	registry *Registry

	backoff time.Duration
}

// NewPoller creates a Poller for the union bounding box boxQuery (a
// pre-built query-string fragment describing the combined region).
func NewPoller(endpoint, apiKey, boxQuery string, registry *Registry) *Poller {
	return &Poller{
		apiKey:   apiKey,
		endpoint: endpoint,
		boxQuery: boxQuery,
		client:   &http.Client{Timeout: httpPollTimeout},
		registry: registry,
		backoff:  httpBackoffBase,
	}
}

// Enabled reports whether the poller has a usable API key.
func (p *Poller) Enabled() bool {
	return p.apiKey != ""
}

// Poll issues one query and merges the results, returning the backoff to
// wait before the next attempt.
func (p *Poller) Poll(ctx context.Context) time.Duration {
	if err := p.pollOnce(ctx); err != nil {
		slog.Warn("AIS HTTP poll failed", "error", err, "next_retry_in", p.backoff)
		wait := p.backoff
		p.backoff *= 2
		if p.backoff > httpBackoffCap {
			p.backoff = httpBackoffCap
		}
		return wait
	}
	p.backoff = httpBackoffBase
	return p.backoff
}

func (p *Poller) pollOnce(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s?username=%s&%s&format=1&output=json&compress=0",
		p.endpoint, url.QueryEscape(p.apiKey), p.boxQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aishub poll: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var records []aisHubRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return fmt.Errorf("parse aishub response: %w", err)
	}

	for _, r := range records {
		if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
			continue
		}
		if r.Lat == 0 && r.Lon == 0 {
			continue
		}
		u := Update{
			MMSI:        r.MMSI,
			Position:    model.Coordinates{Lat: r.Lat, Lng: r.Lon},
			HasPosition: true,
			SpeedKnots:  r.Speed,
			Heading:     r.Heading,
			Course:      r.Course,
			Name:        r.Name,
			Destination: r.Destination,
			Source:      model.SourceHTTP,
		}
		if r.Type != nil {
			t := *r.Type
			u.TypeCode = &t
			u.TypeName = vesselTypeName(t)
			u.TypeCategory = vesselTypeCategory(t)
		}
		if r.Length != nil && r.Width != nil {
			u.Dimensions = &model.Dimensions{Length: *r.Length, Width: *r.Width}
		}
		p.registry.Merge(u)
	}
	return nil
}
