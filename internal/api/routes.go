// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/fetcher"
	"github.com/joeblew999/firecaster/internal/mapview"
	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/internal/style"
)

// Types

type TrackIDInput struct {
	TrackID string `path:"trackId" doc:"Census tract id of the feature" example:"36061000100"`
}

type EventBody struct {
	Type string `json:"type" enum:"pointerenter,pointerleave,click,mouseover,mouseout" doc:"Pointer interaction" example:"pointerenter"`
}

type ResizeBody struct {
	Width  int `json:"width" minimum:"1" doc:"Window width in pixels" example:"1280"`
	Height int `json:"height" minimum:"1" doc:"Window height in pixels" example:"800"`
}

type RefreshInput struct {
	CityID string `query:"city" doc:"City to fetch instead of the configured one" example:"nyc"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// ConfigBody is the public part of the configuration the browser needs.
type ConfigBody struct {
	Profile   string              `json:"profile" example:"development"`
	Provider  string              `json:"provider" enum:"vector,raster"`
	TileLayer mapview.TileLayer   `json:"tileLayer"`
	Locale    string              `json:"locale" example:"en"`
	CityID    string              `json:"cityId" example:"nyc"`
	Refresh   string              `json:"refreshInterval" example:"24h0m0s"`
	Debug     bool                `json:"debug"`
	Legend    []style.LegendEntry `json:"legend"`
}

type MapOutput struct {
	Body service.Snapshot
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type RefreshOutput struct {
	Body service.RefreshInfo
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	ctrl *service.MapController
}

func NewAPIHandler(ctrl *service.MapController) *APIHandler {
	return &APIHandler{ctrl: ctrl}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterConfig registers the public configuration route.
func (h *APIHandler) RegisterConfig(api huma.API) {
	huma.Get(api, "/api/v1/config", h.GetConfig, huma.OperationTags("map"))
}

// RegisterMap registers map state and interaction routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/features", h.GetFeatures, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/features/{trackId}/events", h.PostEvent, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/resize", h.PostResize, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/refresh", h.PostRefresh, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetConfig(ctx context.Context, input *struct{}) (*struct{ Body ConfigBody }, error) {
	cfg := h.ctrl.Config()
	tl, err := mapview.NewTileLayer(cfg)
	if err != nil {
		return nil, huma.Error500InternalServerError("tile layer unavailable", err)
	}
	return &struct{ Body ConfigBody }{Body: ConfigBody{
		Profile:   cfg.Profile,
		Provider:  string(cfg.MapProvider),
		TileLayer: tl,
		Locale:    cfg.DefaultLocale,
		CityID:    cfg.CityID,
		Refresh:   cfg.RefreshInterval.String(),
		Debug:     cfg.Debug,
		Legend:    style.Legend(),
	}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*MapOutput, error) {
	return &MapOutput{Body: h.ctrl.Snapshot()}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*FeaturesOutput, error) {
	body, err := h.ctrl.FeatureCollection().MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding features", err)
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: body}, nil
}

func (h *APIHandler) PostEvent(ctx context.Context, input *struct {
	TrackIDInput
	Body EventBody
}) (*MapOutput, error) {
	kind, err := mapview.ParseEventKind(input.Body.Type)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err := h.ctrl.HandleEvent(ctx, input.TrackID, kind); err != nil {
		return nil, toHumaError(err)
	}
	return &MapOutput{Body: h.ctrl.Snapshot()}, nil
}

func (h *APIHandler) PostResize(ctx context.Context, input *struct{ Body ResizeBody }) (*struct {
	Status int
	Body   MessageBody
}, error) {
	h.ctrl.ResizeDebounced(context.WithoutCancel(ctx), input.Body.Width, input.Body.Height)
	return &struct {
		Status int
		Body   MessageBody
	}{Status: http.StatusAccepted, Body: MessageBody{Message: "resize scheduled"}}, nil
}

func (h *APIHandler) PostRefresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
	city := input.CityID
	if city == "" {
		city = h.ctrl.Config().CityID
	}
	info, err := h.ctrl.FetchCity(ctx, city)
	if err != nil && !errors.Is(err, fetcher.ErrFetchFailed) {
		return nil, toHumaError(err)
	}
	return &RefreshOutput{Body: info}, nil
}

// toHumaError maps controller errors onto HTTP problems.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, service.ErrFeatureNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrUnknownEvent):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrNotMounted), errors.Is(err, config.ErrConfiguration):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
