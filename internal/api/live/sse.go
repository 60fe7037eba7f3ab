// Package live pushes map controller changes to browsers: a Datastar SSE
// stream for the status panel and a websocket feed for the map itself.
package live

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/internal/style"
	"github.com/joeblew999/firecaster/internal/templates"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

// EmptyInput is a shared empty input struct for handlers with no parameters.
type EmptyInput struct{}

// SSE wraps a Datastar SSE generator.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) error {
	return s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner())
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) error {
	return s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) error {
	return s.MarshalAndPatchSignals(signals)
}

// StatusData feeds the map-status fragment.
type StatusData struct {
	Snapshot service.Snapshot
	Legend   []style.LegendEntry
}

// StreamHandler streams the map status panel over SSE.
type StreamHandler struct {
	ctrl     *service.MapController
	renderer *templates.Renderer
	log      logger.Logger
	metrics  *metrics.Manager
}

// NewStreamHandler creates the status stream handler.
func NewStreamHandler(ctrl *service.MapController, renderer *templates.Renderer, m *metrics.Manager) *StreamHandler {
	return &StreamHandler{ctrl: ctrl, renderer: renderer, log: logger.Named("live"), metrics: m}
}

func (h *StreamHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/stream", h.Stream, huma.OperationTags("live"))
	huma.Post(api, "/api/v1/map/stream/resize", h.Resize, huma.OperationTags("live"))
}

// Stream sends the current status, then a fresh one on every map change.
func (h *StreamHandler) Stream(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			ch := h.ctrl.Bus().Subscribe()
			defer h.ctrl.Bus().Unsubscribe(ch)

			h.metrics.AddLiveClients("sse", 1)
			defer h.metrics.AddLiveClients("sse", -1)

			if err := h.push(sse, nil); err != nil {
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case <-sse.Context().Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if err := h.push(sse, &ev); err != nil {
						h.log.Debug(ctx, "sse client gone", logger.Error(err))
						return
					}
				}
			}
		},
	}, nil
}

func (h *StreamHandler) push(sse SSE, ev *service.Event) error {
	snap := h.ctrl.Snapshot()
	html, err := h.renderer.Render("map-status", StatusData{Snapshot: snap, Legend: style.Legend()})
	if err != nil {
		return sse.Error(err.Error())
	}
	if err := sse.Patch(html, "#map-status"); err != nil {
		return err
	}

	signals := map[string]any{
		"zoom":        snap.Zoom,
		"features":    snap.FeatureCount,
		"highlighted": snap.Highlighted,
	}
	if ev != nil {
		signals["lastEvent"] = string(ev.Kind)
	}
	return sse.Signals(signals)
}

// Resize takes the window size from Datastar signals and schedules a resize.
func (h *StreamHandler) Resize(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	width, height := signals.Int("width"), signals.Int("height")
	if width <= 0 || height <= 0 {
		return nil, huma.Error400BadRequest("width and height signals are required")
	}
	h.ctrl.ResizeDebounced(context.WithoutCancel(ctx), width, height)

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			_ = NewSSE(humaCtx).Signals(map[string]any{"resizePending": true})
		},
	}, nil
}
