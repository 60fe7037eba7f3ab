package service

import (
	"context"
	"time"

	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/fetcher"
	"github.com/joeblew999/firecaster/internal/mapview"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

// Refresh fetches the configured city.
func (c *MapController) Refresh(ctx context.Context) (RefreshInfo, error) {
	return c.FetchCity(ctx, c.cfg.CityID)
}

// FetchCity issues a fetch for cityID and applies its result if no later
// fetch was issued in the meantime. A failed fetch leaves the rendered
// features untouched; the error is returned for reporting only.
func (c *MapController) FetchCity(ctx context.Context, cityID string) (RefreshInfo, error) {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	res, err := c.fetcher.Fetch(ctx, cityID)

	info := RefreshInfo{
		Seq:       seq,
		RequestID: res.RequestID,
		CityID:    cityID,
		Features:  len(res.Features),
		Unknown:   res.Unknown,
		Skipped:   len(res.Skipped),
		At:        time.Now().UTC(),
		LatencyMs: res.Latency.Milliseconds(),
	}
	fields := []logger.Field{
		logger.Int64("seq", int64(seq)),
		logger.String("request_id", res.RequestID),
		logger.String("city_id", cityID),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.issued {
		info.Outcome = metrics.OutcomeStale
		c.metrics.RecordFetch(info.Outcome)
		c.log.Debug(ctx, "discarding superseded fetch", append(fields, logger.Int64("latest", int64(c.issued)))...)
		return info, err
	}

	switch {
	case err != nil:
		info.Outcome = metrics.OutcomeFailure
		info.Error = err.Error()
		c.log.Error(ctx, "fetching predictions failed", append(fields, logger.Error(err))...)

	case res.Status == fetcher.StatusNoData:
		info.Outcome = metrics.OutcomeNoData
		c.log.Info(ctx, "no predictions for city", fields...)
		if c.cfg.NoDataPolicy == config.NoDataClear {
			c.replaceFeatures(res)
			c.bus.Publish(Event{Kind: EventFeatures, Seq: seq})
		}

	default:
		info.Outcome = metrics.OutcomeSuccess
		c.replaceFeatures(res)
		c.metrics.AddUnknownScores(res.Unknown)
		c.metrics.AddSkippedFeatures(len(res.Skipped))
		for _, f := range res.Features {
			if !f.Score.Known() {
				c.log.Warn(ctx, "unexpected prediction score",
					append(fields, logger.String("track_id", f.TrackID), logger.String("score", f.RawScore))...)
			}
		}
		c.log.Info(ctx, "predictions loaded", append(fields,
			logger.Int("features", len(res.Features)),
			logger.Int("skipped", len(res.Skipped)))...)
		c.bus.Publish(Event{Kind: EventFeatures, Seq: seq})
	}

	c.metrics.RecordFetch(info.Outcome)
	c.last = &info
	c.bus.Publish(Event{Kind: EventRefresh, Seq: seq})
	return info, err
}

// replaceFeatures swaps the whole feature set. Old layers lose their
// handlers; new layers get the base style and fresh handlers.
func (c *MapController) replaceFeatures(res fetcher.Result) {
	c.view.ClearLayers()
	c.highlighted = nil
	c.view.ClosePopup()

	for _, f := range res.Features {
		l := mapview.NewFeatureLayer(f)
		c.subscribe(l)
		c.view.AddLayer(l)
	}
	c.metrics.SetFeaturesRendered(len(res.Features))
}

// Run fetches immediately and then once per refresh interval until ctx is
// done. Failed fetches do not stop the loop.
func (c *MapController) Run(ctx context.Context) error {
	c.log.Info(ctx, "refresh loop started",
		logger.String("city_id", c.cfg.CityID),
		logger.String("interval", c.cfg.RefreshInterval.String()))

	_, _ = c.Refresh(ctx)

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			_, _ = c.Refresh(ctx)
		}
	}
}
