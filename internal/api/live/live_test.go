package live

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/mapview"
	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/internal/templates"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"width":1280,"height":800.0,"city":"nyc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Int("width") != 1280 || s.Int("height") != 800 {
		t.Fatalf("ints = %d %d", s.Int("width"), s.Int("height"))
	}
	if s.String("city") != "nyc" || s.String("width") != "" || s.Int("missing") != 0 {
		t.Fatal("unexpected accessor results")
	}

	if _, err := (&SignalsInput{RawBody: []byte("{")}).MustParse(); err == nil {
		t.Fatal("malformed signals should fail")
	}
}

func newStreamServer(t *testing.T) (*httptest.Server, *service.MapController) {
	t.Helper()
	cfg := config.New()
	cfg.ResizeDebounce = 0
	m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	ctrl, err := service.New(cfg,
		service.WithSurfaces(mapview.NewSurfaces()),
		service.WithLogger(logger.Nop()),
		service.WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctrl.Teardown)

	renderer, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("live test", "1.0.0"))
	NewStreamHandler(ctrl, renderer, m).RegisterRoutes(api)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, ctrl
}

func TestStreamSendsStatus(t *testing.T) {
	ts, _ := newStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/map/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %s", ct)
	}

	var sawPatch, sawSignals bool
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && !(sawPatch && sawSignals) {
		line := sc.Text()
		if strings.Contains(line, "datastar-patch-elements") {
			sawPatch = true
		}
		if strings.Contains(line, "datastar-patch-signals") {
			sawSignals = true
		}
	}
	if !sawPatch || !sawSignals {
		t.Fatalf("patch=%v signals=%v", sawPatch, sawSignals)
	}
}

func TestStreamResize(t *testing.T) {
	ts, ctrl := newStreamServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/map/stream/resize", "application/json", strings.NewReader(`{"width":0}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing size = %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/v1/map/stream/resize", "application/json", strings.NewReader(`{"width":800,"height":600}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resize = %d", resp.StatusCode)
	}
	if s := ctrl.Snapshot(); s.Width != 800 || s.Height != 600 {
		t.Fatalf("size = %dx%d", s.Width, s.Height)
	}
}
