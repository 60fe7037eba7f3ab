// Package fetcher retrieves city predictions from the prediction service.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

// Status is the outcome of a successful request.
type Status int

const (
	// StatusLoaded means the body carried features.
	StatusLoaded Status = iota
	// StatusNoData means the service answered 204.
	StatusNoData
)

func (s Status) String() string {
	if s == StatusNoData {
		return "no_data"
	}
	return "loaded"
}

// maxBody caps the response size read from the service.
const maxBody = 64 << 20

// Result of one fetch.
type Result struct {
	RequestID string
	CityID    string
	Status    Status
	Features  []prediction.Feature
	// Unknown counts features with a score outside -1, 0, 1.
	Unknown int
	Skipped []error
	Latency time.Duration
}

// Client calls GET {base}/get_city_preds/{cityId}.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
	metrics *metrics.Manager
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the service rooted at baseURL. An empty base
// means same origin and yields relative URLs.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.Named("fetcher"),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL is the endpoint for cityID.
func (c *Client) URL(cityID string) string {
	return c.baseURL + "/get_city_preds/" + url.PathEscape(cityID)
}

// Fetch requests the predictions of cityID. A 204 is a successful
// StatusNoData result. Any other failure is a *FetchError; there is no retry.
func (c *Client) Fetch(ctx context.Context, cityID string) (res Result, err error) {
	res = Result{RequestID: uuid.NewString(), CityID: cityID}
	target := c.URL(cityID)
	start := time.Now()

	defer func() {
		res.Latency = time.Since(start)
		c.metrics.RecordFetchLatency(float64(res.Latency.Milliseconds()))
	}()

	c.log.Debug(ctx, "fetching predictions",
		logger.String("request_id", res.RequestID),
		logger.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return res, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", res.RequestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return res, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		res.Status = StatusNoData
		return res, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return res, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	decoded, err := prediction.Decode(body)
	if err != nil {
		return res, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	res.Status = StatusLoaded
	res.Features = decoded.Features
	res.Unknown = decoded.Unknown
	res.Skipped = decoded.Skipped
	for _, s := range decoded.Skipped {
		c.log.Warn(ctx, "skipping malformed feature",
			logger.String("request_id", res.RequestID),
			logger.Error(s))
	}
	return res, nil
}
