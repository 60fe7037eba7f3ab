package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version of the firecaster API.
const Version = "1.0.0"

type InfoHandler struct {
	profile string
	store   string
}

// NewInfoHandler describes the running service. store names the backing
// prediction store when the development backend runs in-process.
func NewInfoHandler(profile, store string) *InfoHandler {
	return &InfoHandler{profile: profile, store: store}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Profile  string   `json:"profile" doc:"Active configuration profile"`
	Store    string   `json:"store,omitempty" doc:"Prediction store driver, when served in-process"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "firecaster",
		Version:  Version,
		Profile:  h.profile,
		Store:    h.store,
		Features: []string{"predictions", "geojson", "sse", "websocket", "metrics"},
	}}, nil
}
