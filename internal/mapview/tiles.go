package mapview

import (
	"fmt"
	"strings"

	"github.com/joeblew999/firecaster/internal/config"
)

// Attribution strings for the two basemap providers.
const (
	VectorAttribution = `<a href="http://openstreetmap.org/copyright">Map data: © OpenStreetMap</a> | ` +
		`<a href="http://mapbox.com/map-feedback/" class="mapbox-improve-map">Improve this map</a>`
	RasterAttribution = `Map data &copy; <a href="http://openstreetmap.org">OpenStreetMap</a>`
)

// Max zoom per provider.
const (
	VectorMaxZoom = 22
	RasterMaxZoom = 18
)

// TileLayer is the basemap layer drawn under the features.
type TileLayer struct {
	Provider    config.MapProvider `json:"provider"`
	URL         string             `json:"url"`
	Attribution string             `json:"attribution"`
	MaxZoom     int                `json:"maxZoom"`
	// MapID and AccessToken are only set for the vector provider.
	MapID       string `json:"mapId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// NewTileLayer builds the tile layer the configuration selects.
func NewTileLayer(cfg *config.Config) (TileLayer, error) {
	switch cfg.MapProvider {
	case config.ProviderVector:
		if strings.TrimSpace(cfg.MapID) == "" || strings.TrimSpace(cfg.AccessToken) == "" {
			return TileLayer{}, fmt.Errorf("%w: vector provider requires map_id and access_token", config.ErrConfiguration)
		}
		url := strings.ReplaceAll(cfg.TileURLTemplate, "{mapId}", cfg.MapID)
		url = strings.ReplaceAll(url, "{accessToken}", cfg.AccessToken)
		return TileLayer{
			Provider:    config.ProviderVector,
			URL:         url,
			Attribution: VectorAttribution,
			MaxZoom:     VectorMaxZoom,
			MapID:       cfg.MapID,
			AccessToken: cfg.AccessToken,
		}, nil

	case config.ProviderRaster:
		if strings.TrimSpace(cfg.TileURLTemplate) == "" {
			return TileLayer{}, fmt.Errorf("%w: raster provider requires tile_url", config.ErrConfiguration)
		}
		return TileLayer{
			Provider:    config.ProviderRaster,
			URL:         cfg.TileURLTemplate,
			Attribution: RasterAttribution,
			MaxZoom:     RasterMaxZoom,
		}, nil
	}
	return TileLayer{}, fmt.Errorf("%w: unknown map_provider %q", config.ErrConfiguration, cfg.MapProvider)
}
