// Package service contains the map controller: the authoritative state of
// the fire-risk map and the logic that drives it.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/fetcher"
	"github.com/joeblew999/firecaster/internal/mapview"
	"github.com/joeblew999/firecaster/internal/style"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

// Fetcher loads the predictions of a city.
type Fetcher interface {
	Fetch(ctx context.Context, cityID string) (fetcher.Result, error)
}

// MapController owns the map view, the rendered features, the highlight and
// the fetch ordering. All state changes happen under mu; handlers run with
// it held and never block.
type MapController struct {
	cfg      *config.Config
	fetcher  Fetcher
	surfaces *mapview.Surfaces
	bus      *EventBus
	log      logger.Logger
	metrics  *metrics.Manager
	resizer  *mapview.Debouncer

	mu          sync.Mutex
	view        *mapview.MapView
	highlighted *mapview.FeatureLayer
	mounted     bool
	issued      uint64
	last        *RefreshInfo
}

// Option configures a MapController.
type Option func(*MapController)

// WithFetcher replaces the HTTP fetcher built from the configuration.
func WithFetcher(f Fetcher) Option {
	return func(c *MapController) { c.fetcher = f }
}

// WithSurfaces sets the surface registry. Defaults to mapview.DefaultSurfaces.
func WithSurfaces(s *mapview.Surfaces) Option {
	return func(c *MapController) { c.surfaces = s }
}

// WithEventBus sets the bus changes are published on.
func WithEventBus(b *EventBus) Option {
	return func(c *MapController) { c.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *MapController) { c.log = l }
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *MapController) { c.metrics = m }
}

// New validates cfg and builds the map view with its tile layer. On a
// configuration error no controller is returned.
func New(cfg *config.Config, opts ...Option) (*MapController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	view, err := mapview.New(cfg)
	if err != nil {
		return nil, err
	}

	c := &MapController{
		cfg:      cfg,
		surfaces: mapview.DefaultSurfaces,
		bus:      NewEventBus(),
		log:      logger.Named("map"),
		metrics:  metrics.Default(),
		resizer:  mapview.NewDebouncer(cfg.ResizeDebounce),
		view:     view,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetcher.New(cfg.APIBaseURL, cfg.FetchTimeout,
			fetcher.WithLogger(c.log.Named("fetcher")),
			fetcher.WithMetrics(c.metrics))
	}
	return c, nil
}

// Config returns the active configuration.
func (c *MapController) Config() *config.Config { return c.cfg }

// Bus returns the event bus changes are published on.
func (c *MapController) Bus() *EventBus { return c.bus }

// Init mounts the map on its surface.
func (c *MapController) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.surfaces.Mount(c.view.MountID()); err != nil {
		return err
	}
	c.mounted = true
	tl, _ := c.view.TileLayer()
	c.log.Info(ctx, "map mounted",
		logger.String("mount", c.view.MountID()),
		logger.String("provider", string(tl.Provider)),
		logger.Int("max_zoom", tl.MaxZoom))
	c.bus.Publish(Event{Kind: EventTiles})
	return nil
}

// Teardown drops pending resizes, removes the feature layers and releases
// the surface. The controller can be mounted again with Init.
func (c *MapController) Teardown() {
	c.resizer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ClearLayers()
	c.view.ClosePopup()
	c.highlighted = nil
	if c.mounted {
		c.surfaces.Release(c.view.MountID())
		c.mounted = false
	}
	c.metrics.SetFeaturesRendered(0)
}

// Resize sets the canvas to the window size.
func (c *MapController) Resize(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	if c.view.Resize(width, height) {
		c.metrics.RecordResize()
		c.bus.Publish(Event{Kind: EventResize})
	}
	return nil
}

// ResizeDebounced collapses bursts of window resize events and applies
// the last one.
func (c *MapController) ResizeDebounced(ctx context.Context, width, height int) {
	c.resizer.Trigger(func() {
		if err := c.Resize(width, height); err != nil {
			c.log.Debug(ctx, "resize ignored", logger.Error(err))
		}
	})
}

// HandleEvent dispatches a pointer interaction to the feature layer of trackID.
func (c *MapController) HandleEvent(ctx context.Context, trackID string, kind mapview.EventKind) error {
	switch kind {
	case mapview.PointerEnter, mapview.PointerLeave, mapview.Click:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	layer, ok := c.view.Layer(trackID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrFeatureNotFound, trackID)
	}
	if !layer.Emit(kind) {
		return fmt.Errorf("%w: %q has no %s handler", ErrUnknownEvent, trackID, kind)
	}
	c.metrics.RecordInteraction(string(kind))
	c.log.Debug(ctx, "feature event", logger.String("track_id", trackID), logger.String("kind", string(kind)))
	return nil
}

// subscribe attaches the three interaction handlers to a new layer.
func (c *MapController) subscribe(l *mapview.FeatureLayer) {
	l.On(mapview.PointerEnter, c.onPointerEnter)
	l.On(mapview.PointerLeave, c.onPointerLeave)
	l.On(mapview.Click, c.onClick)
}

func (c *MapController) onPointerEnter(e mapview.Event) {
	if c.highlighted != nil && c.highlighted != e.Layer {
		c.highlighted.SetStyle(style.For(c.highlighted.Feature.Score))
	}
	e.Layer.SetStyle(style.Highlight(style.For(e.Layer.Feature.Score)))
	if c.cfg.RaiseOnHighlight {
		c.view.BringToFront(e.Layer)
	}
	c.highlighted = e.Layer
	c.bus.Publish(Event{Kind: EventHighlight, TrackID: e.Layer.ID()})
}

func (c *MapController) onPointerLeave(e mapview.Event) {
	e.Layer.SetStyle(style.For(e.Layer.Feature.Score))
	if c.highlighted == e.Layer {
		c.highlighted = nil
	}
	c.bus.Publish(Event{Kind: EventHighlight, TrackID: e.Layer.ID()})
}

func (c *MapController) onClick(e mapview.Event) {
	f := e.Layer.Feature
	bound := f.Bound()
	c.view.FitBounds(bound)
	c.bus.Publish(Event{Kind: EventViewport, TrackID: f.TrackID})

	if f.HasSensor() {
		c.view.OpenPopup(mapview.Popup{TrackID: f.TrackID, Text: f.PopupText(), Anchor: bound.Center()})
	} else {
		c.view.ClosePopup()
	}
	c.bus.Publish(Event{Kind: EventPopup, TrackID: f.TrackID})
}

// Snapshot copies the current map state.
func (c *MapController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, h := c.view.Size()
	s := Snapshot{
		MountID:      c.view.MountID(),
		Mounted:      c.mounted,
		Center:       latLng(c.view.Center()),
		Zoom:         c.view.Zoom(),
		MinZoom:      c.view.MinZoom(),
		MaxZoom:      c.view.MaxZoom(),
		Width:        w,
		Height:       h,
		Viewport:     boundsOf(c.view.Viewport()),
		ZOrder:       c.view.ZOrder(),
		FeatureCount: len(c.view.Layers()),
	}
	if tl, ok := c.view.TileLayer(); ok {
		s.TileLayer = &tl
	}
	if c.highlighted != nil {
		s.Highlighted = c.highlighted.ID()
	}
	if p, ok := c.view.Popup(); ok {
		s.Popup = &PopupView{TrackID: p.TrackID, Text: p.Text, Anchor: latLng(p.Anchor)}
	}
	if c.last != nil {
		last := *c.last
		s.LastRefresh = &last
	}
	return s
}

// Features returns the rendered features bottom to top.
func (c *MapController) Features() []FeatureView {
	c.mu.Lock()
	defer c.mu.Unlock()

	layers := c.view.Layers()
	out := make([]FeatureView, len(layers))
	for i, l := range layers {
		out[i] = FeatureView{Feature: l.Feature, Style: l.Style(), Highlighted: l == c.highlighted}
	}
	return out
}

// Feature returns one rendered feature.
func (c *MapController) Feature(trackID string) (FeatureView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.view.Layer(trackID)
	if !ok {
		return FeatureView{}, fmt.Errorf("%w: %q", ErrFeatureNotFound, trackID)
	}
	return FeatureView{Feature: l.Feature, Style: l.Style(), Highlighted: l == c.highlighted}, nil
}

// FeatureCollection renders the features as GeoJSON with their styles.
func (c *MapController) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, fv := range c.Features() {
		gf := geojson.NewFeature(fv.Feature.Geometry)
		gf.ID = fv.Feature.TrackID
		gf.Properties = fv.Properties()
		fc.Append(gf)
	}
	return fc
}
