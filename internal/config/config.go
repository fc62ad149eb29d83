// Package config loads process configuration from the environment and the
// region/bridge roster from a YAML file, in the teacher's style: a flat
// env-tagged struct for runtime knobs, a separate YAML document for the
// domain roster that changes less often than deploys.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config holds process-wide runtime settings, resolved from the environment.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Timezone string `env:"TIMEZONE" envDefault:"America/Toronto"`

	SnapshotPath string `env:"SNAPSHOT_PATH" envDefault:"data/bridges.json"`
	HistoryDir   string `env:"HISTORY_DIR" envDefault:"data/history"`
	RosterPath   string `env:"ROSTER_PATH" envDefault:"config/roster.yaml"`

	AISUDPEnabled  bool   `env:"AIS_UDP_ENABLED" envDefault:"true"`
	AISUDPPort     int    `env:"AIS_UDP_PORT" envDefault:"5005"`
	AISUDPStations string `env:"AIS_UDP_STATION_MAP" envDefault:""` // "1.2.3.4=welland-1,..."

	AISHubAPIKey string `env:"AISHUB_API_KEY" envDefault:""`
	AISHubURL    string `env:"AISHUB_URL" envDefault:"https://data.aishub.net/ws.php"`

	RateLimitDataPerMin   int `env:"RATE_LIMIT_DATA_PER_MIN" envDefault:"60"`
	RateLimitStaticPerMin int `env:"RATE_LIMIT_STATIC_PER_MIN" envDefault:"30"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE" envDefault:""`

	// InsecureSkipVerifyHost names the single upstream, if any, for which TLS
	// verification is disabled. Must be set explicitly; there is no default.
	InsecureSkipVerifyHost string `env:"INSECURE_SKIP_VERIFY_HOST" envDefault:""`
}

// Load resolves Config from the environment. Fails fast on a malformed or
// missing required value.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// UpstreamShape names one of the two known upstream JSON shapes for bridge
// status feeds (spec §4.4).
type UpstreamShape string

const (
	ShapeSeawayJSON  UpstreamShape = "seaway_json"
	ShapeLegacyTable UpstreamShape = "legacy_table"
)

// BoundingBox is a lat/lon rectangle used for vessel region membership.
type BoundingBox struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// Contains reports whether (lat, lon) falls within the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BridgeRoster is one configured bridge.
type BridgeRoster struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
	UpstreamKey string  `yaml:"upstream_key"` // the raw upstream's own bridge identifier
}

// RegionRoster is one configured bridge region: a set of bridges behind one
// upstream endpoint.
type RegionRoster struct {
	Name        string         `yaml:"name"`
	ShortCode   string         `yaml:"short_code"`
	UpstreamURL string         `yaml:"upstream_url"`
	Shape       UpstreamShape  `yaml:"shape"`
	Bridges     []BridgeRoster `yaml:"bridges"`
}

// VesselRegionRoster is one configured vessel region: the bounding box used
// for AIS region-membership and the model.Region value it maps to.
type VesselRegionRoster struct {
	Name string      `yaml:"name"` // "welland" or "montreal"
	Box  BoundingBox `yaml:"box"`
}

// Roster is the full region/bridge/vessel-region configuration document.
type Roster struct {
	Regions       []RegionRoster       `yaml:"regions"`
	VesselRegions []VesselRegionRoster `yaml:"vessel_regions"`
}

// LoadRoster reads and parses the roster YAML file at path.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return &r, nil
}
