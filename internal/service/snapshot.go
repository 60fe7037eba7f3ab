package service

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/firecaster/internal/mapview"
	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/internal/style"
)

// LatLng is a geographic position.
type LatLng struct {
	Lat float64 `json:"lat" doc:"Latitude" example:"40.64"`
	Lng float64 `json:"lng" doc:"Longitude" example:"-74"`
}

func latLng(p orb.Point) LatLng { return LatLng{Lat: p.Lat(), Lng: p.Lon()} }

// Bounds is a geographic rectangle.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

func boundsOf(b orb.Bound) Bounds {
	return Bounds{South: b.Min.Lat(), West: b.Min.Lon(), North: b.Max.Lat(), East: b.Max.Lon()}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// RefreshInfo describes the outcome of one fetch.
type RefreshInfo struct {
	Seq       uint64    `json:"seq" doc:"Sequence number taken when the fetch was issued"`
	RequestID string    `json:"requestId" doc:"Request id sent to the prediction service"`
	CityID    string    `json:"cityId" example:"nyc"`
	Outcome   string    `json:"outcome" enum:"success,no_data,failure,stale" doc:"What happened to the result"`
	Features  int       `json:"features" doc:"Features in the response"`
	Unknown   int       `json:"unknown" doc:"Features with a score outside -1, 0, 1"`
	Skipped   int       `json:"skipped" doc:"Malformed features left out"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
	LatencyMs int64     `json:"latencyMs"`
}

// PopupView is an open popup.
type PopupView struct {
	TrackID string `json:"trackId"`
	Text    string `json:"text" example:"Tract ID:36061 Prediction:1"`
	Anchor  LatLng `json:"anchor"`
}

// Snapshot is an immutable copy of the map state.
type Snapshot struct {
	MountID      string             `json:"mountId" example:"map"`
	Mounted      bool               `json:"mounted"`
	Center       LatLng             `json:"center"`
	Zoom         int                `json:"zoom" example:"10"`
	MinZoom      int                `json:"minZoom"`
	MaxZoom      int                `json:"maxZoom" example:"18"`
	Width        int                `json:"width" example:"1024"`
	Height       int                `json:"height" example:"768"`
	Viewport     Bounds             `json:"viewport"`
	TileLayer    *mapview.TileLayer `json:"tileLayer,omitempty"`
	Highlighted  string             `json:"highlighted,omitempty" doc:"Track id of the highlighted feature"`
	Popup        *PopupView         `json:"popup,omitempty"`
	ZOrder       []string           `json:"zOrder" doc:"Track ids bottom to top"`
	FeatureCount int                `json:"featureCount"`
	LastRefresh  *RefreshInfo       `json:"lastRefresh,omitempty"`
}

// FeatureView is a rendered feature with its applied style.
type FeatureView struct {
	Feature     prediction.Feature
	Style       style.Style
	Highlighted bool
}

// Properties are the GeoJSON properties the browser draws from.
func (f FeatureView) Properties() map[string]any {
	props := f.Feature.ToGeoJSON().Properties
	for k, v := range f.Style.Properties() {
		props[k] = v
	}
	props["highlighted"] = f.Highlighted
	if f.Feature.HasSensor() {
		props["popup"] = f.Feature.PopupText()
	}
	return props
}
