package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

const body = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-73.95,40.65]},"properties":{"tract_id":"T1","sensor_id":"S1","pred_score":1}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-73.96,40.66]},"properties":{"tract_id":"T2","pred_score":3}},
 {"type":"Feature","geometry":null,"properties":{"tract_id":"T3","pred_score":0}}
]}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	return New(srv.URL, time.Second, WithLogger(logger.Nop()), WithMetrics(m))
}

func TestFetchLoaded(t *testing.T) {
	var gotPath, gotRequestID string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	res, err := c.Fetch(context.Background(), "nyc")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/get_city_preds/nyc" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotRequestID == "" || gotRequestID != res.RequestID {
		t.Fatalf("request id %q not propagated (%q)", gotRequestID, res.RequestID)
	}
	if res.Status != StatusLoaded || len(res.Features) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Unknown != 1 || len(res.Skipped) != 1 {
		t.Fatalf("unknown = %d skipped = %d", res.Unknown, len(res.Skipped))
	}
	if res.Features[1].Score != prediction.ScoreUnknown {
		t.Fatal("out-of-domain score must decode as unknown")
	}
}

func TestFetchNoData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	res, err := c.Fetch(context.Background(), "nyc")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusNoData || res.Features != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFetchFailures(t *testing.T) {
	cases := map[string]struct {
		handler http.HandlerFunc
		status  int
	}{
		"server error": {func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, http.StatusInternalServerError},
		"not found": {func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}, http.StatusNotFound},
		"empty 200": {func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}, http.StatusOK},
		"malformed body": {func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}, http.StatusOK},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, tc.handler)
			_, err := c.Fetch(context.Background(), "nyc")
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("err = %v, want ErrFetchFailed", err)
			}
			var fe *FetchError
			if !errors.As(err, &fe) || fe.StatusCode != tc.status {
				t.Fatalf("status = %v, want %d", fe, tc.status)
			}
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, WithLogger(logger.Nop()),
		WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
	_, err := c.Fetch(context.Background(), "nyc")

	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 0 {
		t.Fatalf("err = %v, want a FetchError without status", err)
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatal("network errors must wrap ErrFetchFailed")
	}
}

func TestURL(t *testing.T) {
	c := New("http://preds:5000/", time.Second)
	if got := c.URL("new york"); got != "http://preds:5000/get_city_preds/new%20york" {
		t.Fatalf("URL = %s", got)
	}
}
