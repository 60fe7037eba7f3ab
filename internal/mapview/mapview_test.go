package mapview

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/internal/style"
)

func vectorConfig() *config.Config {
	cfg, _ := config.Profile(config.ProfileProduction)
	cfg.MapID = "examples.map-i86nkdio"
	cfg.AccessToken = "pk.test"
	return cfg
}

func TestNewRaster(t *testing.T) {
	v, err := New(config.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.MountID() != "map" || v.Zoom() != 10 || v.Center() != (orb.Point{-74.00, 40.64}) {
		t.Fatalf("unexpected initial view: %s %d %v", v.MountID(), v.Zoom(), v.Center())
	}
	tl, ok := v.TileLayer()
	if !ok || tl.MaxZoom != 18 || tl.Attribution != RasterAttribution {
		t.Fatalf("unexpected raster layer: %+v", tl)
	}
	if tl.URL != "http://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png" {
		t.Fatalf("url = %s", tl.URL)
	}
}

func TestNewVector(t *testing.T) {
	v, err := New(vectorConfig())
	if err != nil {
		t.Fatal(err)
	}
	tl, _ := v.TileLayer()
	if tl.MaxZoom != 22 || tl.URL != "http://{s}.tiles.mapbox.com/v3/examples.map-i86nkdio/{z}/{x}/{y}.png" {
		t.Fatalf("unexpected vector layer: %+v", tl)
	}
	if tl.AccessToken != "pk.test" {
		t.Fatal("vector layer must carry the access token")
	}
}

func TestNewVectorMissingToken(t *testing.T) {
	cfg := vectorConfig()
	cfg.AccessToken = ""
	v, err := New(cfg)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if v != nil {
		t.Fatal("no view may be created on a configuration error")
	}
}

func TestAttachTileLayerReplaces(t *testing.T) {
	v, _ := New(config.New())
	if err := v.AttachTileLayer(vectorConfig()); err != nil {
		t.Fatal(err)
	}
	tl, _ := v.TileLayer()
	if tl.Provider != config.ProviderVector {
		t.Fatalf("provider = %s, want vector", tl.Provider)
	}
}

func TestFitBoundsContains(t *testing.T) {
	bounds := []orb.Bound{
		{Min: orb.Point{-74.0, 40.6}, Max: orb.Point{-73.9, 40.7}},
		{Min: orb.Point{-74.26, 40.49}, Max: orb.Point{-73.70, 40.92}},
		{Min: orb.Point{-73.9501, 40.6501}, Max: orb.Point{-73.95, 40.65}},
		{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}},
	}
	sizes := [][2]int{{1024, 768}, {320, 480}, {1920, 1080}}

	for _, size := range sizes {
		for _, b := range bounds {
			v, _ := New(config.New())
			v.Resize(size[0], size[1])
			v.FitBounds(b)

			vp := v.Viewport()
			if !vp.Contains(b.Min) || !vp.Contains(b.Max) {
				t.Errorf("size %v: viewport %v does not contain %v (zoom %d)", size, vp, b, v.Zoom())
			}
			if z := v.Zoom(); z+2 <= v.MaxZoom() {
				// two levels closer the bounds are wider than the canvas
				v.SetView(v.Center(), z+2)
				vp = v.Viewport()
				if vp.Contains(b.Min) && vp.Contains(b.Max) {
					t.Errorf("size %v: zoom %d is not the largest fitting zoom for %v", size, z, b)
				}
			}
		}
	}
}

func TestFitBoundsPoint(t *testing.T) {
	v, _ := New(config.New())
	p := orb.Point{-73.95, 40.65}
	v.FitBounds(p.Bound())
	if v.Zoom() != RasterMaxZoom {
		t.Fatalf("zoom = %d, want max", v.Zoom())
	}
	if !v.Viewport().Contains(p) {
		t.Fatal("viewport must contain the point")
	}
}

func TestResize(t *testing.T) {
	v, _ := New(config.New())
	if !v.Resize(800, 600) {
		t.Fatal("resize should report a change")
	}
	if v.Resize(800, 600) {
		t.Fatal("same size is not a change")
	}
	if v.Resize(0, 600) {
		t.Fatal("zero width must be ignored")
	}
	w, h := v.Size()
	if w != 800 || h != 600 {
		t.Fatalf("size = %dx%d", w, h)
	}
}

func TestLayersZOrder(t *testing.T) {
	v, _ := New(config.New())
	for _, id := range []string{"a", "b", "c"} {
		v.AddLayer(NewFeatureLayer(prediction.Feature{TrackID: id, Geometry: orb.Point{}}))
	}
	a, ok := v.Layer("a")
	if !ok {
		t.Fatal("layer a not found")
	}
	v.BringToFront(a)
	got := v.ZOrder()
	if got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Fatalf("z-order = %v", got)
	}
	v.ClearLayers()
	if len(v.Layers()) != 0 {
		t.Fatal("layers not cleared")
	}
}

func TestFeatureLayerEvents(t *testing.T) {
	l := NewFeatureLayer(prediction.Feature{TrackID: "t", Score: prediction.ScoreSafe, Geometry: orb.Point{}})
	if l.Style() != style.For(prediction.ScoreSafe) {
		t.Fatal("new layer must carry the base style")
	}
	var order []EventKind
	l.On(PointerEnter, func(e Event) { order = append(order, e.Kind) })
	l.On(Click, func(e Event) { order = append(order, e.Kind) })

	if !l.Emit(PointerEnter) || !l.Emit(Click) {
		t.Fatal("subscribed events must run")
	}
	if l.Emit(PointerLeave) {
		t.Fatal("no handler is subscribed to pointerleave")
	}
	if len(order) != 2 || order[0] != PointerEnter || order[1] != Click {
		t.Fatalf("order = %v", order)
	}
	l.Off()
	if l.Emit(Click) {
		t.Fatal("Off must drop handlers")
	}
}

func TestParseEventKind(t *testing.T) {
	for in, want := range map[string]EventKind{"mouseover": PointerEnter, "PointerLeave": PointerLeave, "click": Click} {
		got, err := ParseEventKind(in)
		if err != nil || got != want {
			t.Errorf("ParseEventKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEventKind("dblclick"); err == nil {
		t.Fatal("dblclick must be rejected")
	}
}

func TestPopup(t *testing.T) {
	v, _ := New(config.New())
	if _, ok := v.Popup(); ok {
		t.Fatal("no popup expected")
	}
	v.OpenPopup(Popup{TrackID: "a", Text: "x"})
	v.OpenPopup(Popup{TrackID: "b", Text: "y"})
	p, ok := v.Popup()
	if !ok || p.TrackID != "b" {
		t.Fatalf("popup = %+v", p)
	}
	v.ClosePopup()
	if _, ok := v.Popup(); ok {
		t.Fatal("popup should be closed")
	}
}

func TestSurfaces(t *testing.T) {
	s := NewSurfaces()
	if err := s.Mount("map"); err != nil {
		t.Fatal(err)
	}
	if err := s.Mount("map"); !errors.Is(err, ErrSurfaceInUse) {
		t.Fatalf("err = %v, want ErrSurfaceInUse", err)
	}
	s.Release("map")
	if s.Mounted("map") {
		t.Fatal("map should be released")
	}
	if err := s.Mount("map"); err != nil {
		t.Fatal(err)
	}
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int64
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int64(i))
		})
	}
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 5 {
		t.Fatalf("calls = %d last = %d, want 1 and 5", calls.Load(), last.Load())
	}
}

func TestDebouncerZeroDelayAndFlush(t *testing.T) {
	var n int
	NewDebouncer(0).Trigger(func() { n++ })
	if n != 1 {
		t.Fatal("zero delay must run immediately")
	}

	d := NewDebouncer(time.Hour)
	d.Trigger(func() { n++ })
	d.Flush()
	if n != 2 {
		t.Fatal("Flush must run the pending function")
	}
	d.Trigger(func() { n++ })
	d.Stop()
	d.Flush()
	if n != 2 {
		t.Fatal("Stop must drop the pending function")
	}
}
