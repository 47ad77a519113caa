// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and APTRANK_* env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// AreaHint maps an address substring to approximate coordinates used when
// geocoding cannot resolve an address.
type AreaHint struct {
	Substring string  `koanf:"substring"`
	Lat       float64 `koanf:"lat"`
	Lon       float64 `koanf:"lon"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database holding ratings and the match ledger.
	// Empty keeps state in memory only.
	DBPath string `koanf:"db_path"`
	// DBJournalMode is the SQLite journal mode, e.g. WAL or DELETE.
	DBJournalMode string `koanf:"db_journal_mode"`

	// SheetURL is a Google Sheets share URL, any CSV URL, or a local CSV path.
	SheetURL      string `koanf:"sheet_url"`
	LinkColumn    string `koanf:"link_column"`
	AddressColumn string `koanf:"address_column"`

	InitialRating     float64 `koanf:"initial_rating"`
	KFactor           float64 `koanf:"k_factor"`
	RecentWindow      int     `koanf:"recent_window"`
	CoverageThreshold int     `koanf:"coverage_threshold"`
	DefaultStrategy   string  `koanf:"default_strategy"`
	// RandomSeed seeds pair selection; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	// RankingsCSV is rewritten after every recorded match. Empty disables it.
	RankingsCSV string `koanf:"rankings_csv"`

	GeocodeCachePath string     `koanf:"geocode_cache_path"`
	NominatimURL     string     `koanf:"nominatim_url"`
	GeocodeRPS       float64    `koanf:"geocode_rps"`
	DefaultLat       float64    `koanf:"default_lat"`
	DefaultLon       float64    `koanf:"default_lon"`
	AreaHints        []AreaHint `koanf:"area_hints"`

	UserAgent          string `koanf:"user_agent"`
	HTTPTimeoutSeconds int    `koanf:"http_timeout_seconds"`
	MaxImages          int    `koanf:"max_images"`

	// MaxHistoryLimit caps GET /matches?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DBPath:            "aptrank.db",
		DBJournalMode:     "WAL",
		LinkColumn:        "Link",
		AddressColumn:     "Addy",
		InitialRating:     1000,
		KFactor:           32,
		RecentWindow:      5,
		CoverageThreshold: 2,
		DefaultStrategy:   "balanced",
		RankingsCSV:       "apartment_elo_rankings.csv",
		GeocodeCachePath:  "geocoding_cache.json",
		NominatimURL:      "https://nominatim.openstreetmap.org/search",
		GeocodeRPS:        1,
		DefaultLat:        40.7128,
		DefaultLon:        -74.0060,
		AreaHints: []AreaHint{
			{Substring: "Queens", Lat: 40.7282, Lon: -73.7949},
			{Substring: "Brooklyn", Lat: 40.6782, Lon: -73.9442},
			{Substring: "Manhattan", Lat: 40.7831, Lon: -73.9712},
			{Substring: "Long Island City", Lat: 40.7505, Lon: -73.9409},
		},
		UserAgent:          "aptrank/1.0 (+https://github.com/okian/aptrank)",
		HTTPTimeoutSeconds: 10,
		MaxImages:          6,
		MaxHistoryLimit:    100,
	}
}

// HTTPTimeout returns the collaborator request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Validate checks the invariants the rest of the program relies on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.LinkColumn) == "":
		return fmt.Errorf("%w: link_column must not be empty", ErrInvalidConfig)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive", ErrInvalidConfig)
	case c.RecentWindow < 0:
		return fmt.Errorf("%w: recent_window must not be negative", ErrInvalidConfig)
	case c.CoverageThreshold < 0:
		return fmt.Errorf("%w: coverage_threshold must not be negative", ErrInvalidConfig)
	case c.GeocodeRPS <= 0:
		return fmt.Errorf("%w: geocode_rps must be positive", ErrInvalidConfig)
	case c.HTTPTimeoutSeconds <= 0:
		return fmt.Errorf("%w: http_timeout_seconds must be positive", ErrInvalidConfig)
	case c.MaxHistoryLimit < 1:
		return fmt.Errorf("%w: max_history_limit must be at least 1", ErrInvalidConfig)
	}
	return nil
}
