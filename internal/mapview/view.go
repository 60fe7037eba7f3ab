// Package mapview models the map the browser draws: the basemap tile layer,
// the feature layers with their z-order, the viewport and the popup.
//
// A MapView is not safe for concurrent use. Its owner serializes access.
package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/firecaster/internal/config"
)

// Defaults of a new view.
const (
	MountID       = "map"
	DefaultZoom   = 10
	DefaultWidth  = 1024
	DefaultHeight = 768

	tileSize     = 256
	earthRadius  = 6378137.0
	fitPaddingPx = 1
)

// DefaultCenter is New York, as (lon, lat).
var DefaultCenter = orb.Point{-74.00, 40.64}

// Popup is an open popup anchored on a feature.
type Popup struct {
	TrackID string    `json:"trackId"`
	Text    string    `json:"text"`
	Anchor  orb.Point `json:"anchor"`
}

// MapView is the map state mirrored to the browser.
type MapView struct {
	mountID string
	center  orb.Point
	zoom    int
	minZoom int
	maxZoom int
	width   int
	height  int

	tile   *TileLayer
	layers []*FeatureLayer
	popup  *Popup
}

// New creates a view centered on DefaultCenter and attaches the tile layer
// cfg selects. A configuration error leaves no view behind.
func New(cfg *config.Config) (*MapView, error) {
	v := &MapView{
		mountID: MountID,
		center:  DefaultCenter,
		zoom:    DefaultZoom,
		width:   DefaultWidth,
		height:  DefaultHeight,
	}
	if err := v.AttachTileLayer(cfg); err != nil {
		return nil, err
	}
	return v, nil
}

// AttachTileLayer replaces the basemap with the one cfg selects.
func (v *MapView) AttachTileLayer(cfg *config.Config) error {
	tl, err := NewTileLayer(cfg)
	if err != nil {
		return err
	}
	v.tile = &tl
	v.maxZoom = tl.MaxZoom
	if v.zoom > v.maxZoom {
		v.zoom = v.maxZoom
	}
	return nil
}

// TileLayer returns the active basemap.
func (v *MapView) TileLayer() (TileLayer, bool) {
	if v.tile == nil {
		return TileLayer{}, false
	}
	return *v.tile, true
}

func (v *MapView) MountID() string  { return v.mountID }
func (v *MapView) Center() orb.Point { return v.center }
func (v *MapView) Zoom() int         { return v.zoom }
func (v *MapView) MinZoom() int      { return v.minZoom }
func (v *MapView) MaxZoom() int      { return v.maxZoom }

// Size is the canvas size in pixels.
func (v *MapView) Size() (width, height int) { return v.width, v.height }

// SetView moves the map. Zoom is clamped to the layer range.
func (v *MapView) SetView(center orb.Point, zoom int) {
	v.center = center
	v.zoom = clamp(zoom, v.minZoom, v.maxZoom)
}

// Resize sets the canvas to the window size. Non-positive sizes are ignored.
func (v *MapView) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if width == v.width && height == v.height {
		return false
	}
	v.width, v.height = width, height
	return true
}

// FitBounds picks the largest zoom at which b fits the canvas with one pixel
// of padding on each side and centers the map on b. When b does not fit
// even at the minimum zoom, the minimum zoom is used.
func (v *MapView) FitBounds(b orb.Bound) {
	lo := project.WGS84.ToMercator(b.Min)
	hi := project.WGS84.ToMercator(b.Max)
	w := math.Abs(hi[0] - lo[0])
	h := math.Abs(hi[1] - lo[1])

	availW := float64(v.width - 2*fitPaddingPx)
	availH := float64(v.height - 2*fitPaddingPx)

	zoom := v.minZoom
	for z := v.maxZoom; z >= v.minZoom; z-- {
		mpp := metersPerPixel(z)
		if w/mpp <= availW && h/mpp <= availH {
			zoom = z
			break
		}
	}

	mid := orb.Point{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2}
	v.center = project.Mercator.ToWGS84(mid)
	v.zoom = zoom
}

// Viewport is the geographic extent of the canvas at the current view.
func (v *MapView) Viewport() orb.Bound {
	c := project.WGS84.ToMercator(v.center)
	mpp := metersPerPixel(v.zoom)
	halfW := float64(v.width) / 2 * mpp
	halfH := float64(v.height) / 2 * mpp

	return orb.Bound{
		Min: project.Mercator.ToWGS84(orb.Point{c[0] - halfW, c[1] - halfH}),
		Max: project.Mercator.ToWGS84(orb.Point{c[0] + halfW, c[1] + halfH}),
	}
}

// AddLayer puts l on top of the z-order.
func (v *MapView) AddLayer(l *FeatureLayer) {
	v.layers = append(v.layers, l)
}

// ClearLayers removes every feature layer and drops their handlers.
func (v *MapView) ClearLayers() {
	for _, l := range v.layers {
		l.Off()
	}
	v.layers = nil
}

// Layers returns the feature layers bottom to top.
func (v *MapView) Layers() []*FeatureLayer {
	out := make([]*FeatureLayer, len(v.layers))
	copy(out, v.layers)
	return out
}

// Layer finds a layer by track id.
func (v *MapView) Layer(trackID string) (*FeatureLayer, bool) {
	for _, l := range v.layers {
		if l.ID() == trackID {
			return l, true
		}
	}
	return nil, false
}

// BringToFront moves l to the top of the z-order.
func (v *MapView) BringToFront(l *FeatureLayer) {
	for i, cur := range v.layers {
		if cur == l {
			v.layers = append(v.layers[:i], v.layers[i+1:]...)
			v.layers = append(v.layers, l)
			return
		}
	}
}

// ZOrder lists track ids bottom to top.
func (v *MapView) ZOrder() []string {
	ids := make([]string, len(v.layers))
	for i, l := range v.layers {
		ids[i] = l.ID()
	}
	return ids
}

// OpenPopup replaces any open popup.
func (v *MapView) OpenPopup(p Popup) { v.popup = &p }

// ClosePopup closes the open popup, if any.
func (v *MapView) ClosePopup() { v.popup = nil }

// Popup returns the open popup.
func (v *MapView) Popup() (Popup, bool) {
	if v.popup == nil {
		return Popup{}, false
	}
	return *v.popup, true
}

func metersPerPixel(zoom int) float64 {
	return 2 * math.Pi * earthRadius / (tileSize * math.Exp2(float64(zoom)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
