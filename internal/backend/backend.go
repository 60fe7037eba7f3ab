// Package backend serves stored predictions with the endpoint contract of
// the prediction service, for local development and tests.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/pkg/logger"
)

// Store is the prediction storage the backend reads from.
type Store interface {
	CityPredictions(ctx context.Context, cityID string) ([]prediction.Feature, error)
	TractPredictions(ctx context.Context, tractID string) ([]prediction.Feature, error)
	Count(ctx context.Context) (int, error)
	Driver() string
}

type CityInput struct {
	CityID string `path:"cityId" doc:"City identifier" example:"nyc"`
}

type TractInput struct {
	TractID string `path:"tractId" doc:"Census tract identifier" example:"36061000100"`
}

// PredictionsOutput is a GeoJSON FeatureCollection, or 204 when there are no rows.
type PredictionsOutput struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type StatsBody struct {
	Driver      string `json:"driver" doc:"Database driver" example:"duckdb"`
	Predictions int    `json:"predictions" doc:"Stored predictions"`
}

// Handler holds the backend routes.
type Handler struct {
	store Store
	log   logger.Logger
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, log: logger.Named("backend")}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/get_city_preds/{cityId}", h.GetCityPredictions, huma.OperationTags("predictions"))
	huma.Get(api, "/get_tract_preds/{tractId}", h.GetTractPredictions, huma.OperationTags("predictions"))
	huma.Get(api, "/stats", h.GetStats, huma.OperationTags("health"))
}

func (h *Handler) GetCityPredictions(ctx context.Context, input *CityInput) (*PredictionsOutput, error) {
	features, err := h.store.CityPredictions(ctx, input.CityID)
	if err != nil {
		h.log.Error(ctx, "city predictions", logger.String("city_id", input.CityID), logger.Error(err))
		return nil, huma.Error500InternalServerError("Failed to load predictions", err)
	}
	return respond(features)
}

func (h *Handler) GetTractPredictions(ctx context.Context, input *TractInput) (*PredictionsOutput, error) {
	features, err := h.store.TractPredictions(ctx, input.TractID)
	if err != nil {
		h.log.Error(ctx, "tract predictions", logger.String("tract_id", input.TractID), logger.Error(err))
		return nil, huma.Error500InternalServerError("Failed to load predictions", err)
	}
	return respond(features)
}

func (h *Handler) GetStats(ctx context.Context, input *struct{}) (*struct{ Body StatsBody }, error) {
	n, err := h.store.Count(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Database not available", err)
	}
	return &struct{ Body StatsBody }{Body: StatsBody{Driver: h.store.Driver(), Predictions: n}}, nil
}

func respond(features []prediction.Feature) (*PredictionsOutput, error) {
	if len(features) == 0 {
		return &PredictionsOutput{Status: http.StatusNoContent}, nil
	}
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f.ToGeoJSON())
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode predictions", err)
	}
	return &PredictionsOutput{Status: http.StatusOK, ContentType: "application/json", Body: body}, nil
}

// New builds the backend HTTP handler.
func New(store Store, addr string) http.Handler {
	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("firecaster prediction backend", "1.0.0")
	cfg.Servers = []*huma.Server{{URL: fmt.Sprintf("http://%s", addr), Description: "Local backend"}}
	cfg.CreateHooks = []func(huma.Config) huma.Config{}
	api := humago.New(mux, cfg)
	NewHandler(store).RegisterRoutes(api)
	return mux
}
