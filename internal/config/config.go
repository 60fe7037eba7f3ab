// Package config selects and validates the single map configuration a
// firecaster process runs with.
package config

import (
	"fmt"
	"strings"
	"time"
)

// MapProvider selects the basemap tile layer flavour.
type MapProvider string

const (
	// ProviderVector is the Mapbox-style provider: needs a map id and an access token.
	ProviderVector MapProvider = "vector"
	// ProviderRaster is a plain XYZ raster template such as OpenStreetMap.
	ProviderRaster MapProvider = "raster"
)

// NoDataPolicy decides what a 204 from the prediction endpoint does to the
// rendered feature set.
type NoDataPolicy string

const (
	NoDataKeep  NoDataPolicy = "keep"
	NoDataClear NoDataPolicy = "clear"
)

// Profile names.
const (
	ProfileProduction  = "production"
	ProfileDevelopment = "development"
)

// Config is immutable once Load returns it.
type Config struct {
	Profile string `koanf:"profile" yaml:"profile"`

	MapProvider     MapProvider `koanf:"map_provider" yaml:"map_provider"`
	MapID           string      `koanf:"map_id" yaml:"map_id"`
	TileURLTemplate string      `koanf:"tile_url" yaml:"tile_url"`
	AccessToken     string      `koanf:"access_token" yaml:"access_token"`
	DefaultLocale   string      `koanf:"default_locale" yaml:"default_locale"`

	// APIBaseURL is the prediction backend root; "" means same origin.
	APIBaseURL string `koanf:"api_base_url" yaml:"api_base_url"`
	CityID     string `koanf:"city_id" yaml:"city_id"`

	RefreshInterval time.Duration `koanf:"refresh_interval" yaml:"refresh_interval"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout" yaml:"fetch_timeout"`
	NoDataPolicy    NoDataPolicy  `koanf:"no_data_policy" yaml:"no_data_policy"`

	ResizeDebounce   time.Duration `koanf:"resize_debounce" yaml:"resize_debounce"`
	RaiseOnHighlight bool          `koanf:"raise_on_highlight" yaml:"raise_on_highlight"`

	Debug    bool   `koanf:"debug" yaml:"debug"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`
}

// New returns the development profile.
func New() *Config {
	c, _ := Profile(ProfileDevelopment)
	return c
}

// Profile returns the defaults for a named profile.
func Profile(name string) (*Config, error) {
	base := Config{
		DefaultLocale:    "en",
		CityID:           "nyc",
		RefreshInterval:  24 * time.Hour,
		FetchTimeout:     30 * time.Second,
		NoDataPolicy:     NoDataKeep,
		ResizeDebounce:   150 * time.Millisecond,
		RaiseOnHighlight: true,
		LogLevel:         "info",
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfileProduction:
		base.Profile = ProfileProduction
		base.MapProvider = ProviderVector
		base.TileURLTemplate = "http://{s}.tiles.mapbox.com/v3/{mapId}/{z}/{x}/{y}.png"
	case "", ProfileDevelopment:
		base.Profile = ProfileDevelopment
		base.MapProvider = ProviderRaster
		base.TileURLTemplate = "http://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
		base.APIBaseURL = "http://127.0.0.1:5000"
		base.Debug = true
		base.LogLevel = "debug"
	default:
		return nil, fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, name)
	}
	return &base, nil
}

// Validate checks the fields the selected provider needs. Provider errors wrap
// ErrConfiguration and must stop the map from being created.
func (c *Config) Validate() error {
	switch c.MapProvider {
	case ProviderVector:
		if strings.TrimSpace(c.MapID) == "" {
			return fmt.Errorf("%w: vector provider requires map_id", ErrConfiguration)
		}
		if strings.TrimSpace(c.AccessToken) == "" {
			return fmt.Errorf("%w: vector provider requires access_token", ErrConfiguration)
		}
	case ProviderRaster:
		if strings.TrimSpace(c.TileURLTemplate) == "" {
			return fmt.Errorf("%w: raster provider requires tile_url", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown map_provider %q", ErrConfiguration, c.MapProvider)
	}

	if strings.TrimSpace(c.CityID) == "" {
		return fmt.Errorf("%w: city_id must not be empty", ErrInvalidConfig)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh_interval must be positive", ErrInvalidConfig)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalidConfig)
	}
	if c.ResizeDebounce < 0 {
		return fmt.Errorf("%w: resize_debounce must not be negative", ErrInvalidConfig)
	}
	switch c.NoDataPolicy {
	case NoDataKeep, NoDataClear:
	default:
		return fmt.Errorf("%w: unknown no_data_policy %q", ErrInvalidConfig, c.NoDataPolicy)
	}
	return nil
}

// EffectiveLogLevel forces debug output when the profile asks for diagnostics.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// PredictionsURL is the endpoint the fetcher calls for a city.
func (c *Config) PredictionsURL(cityID string) string {
	return strings.TrimRight(c.APIBaseURL, "/") + "/get_city_preds/" + cityID
}
