package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/firecaster/internal/api"
	"github.com/joeblew999/firecaster/internal/api/live"
	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/internal/templates"
	"github.com/joeblew999/firecaster/pkg/logger"
	"github.com/joeblew999/firecaster/pkg/metrics"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	// Store names the prediction store when the backend runs in-process.
	Store string
	// Backend, when set, serves the prediction endpoints from this process.
	Backend http.Handler
}

// Server is the firecaster HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	ctrl     *service.MapController
	renderer *templates.Renderer
	hub      *live.Hub
	metrics  *metrics.Manager
	log      logger.Logger
}

// New creates a new firecaster server around a map controller.
func New(cfg Config, ctrl *service.MapController) (*Server, error) {
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("firecaster API", api.Version)
	humaConfig.Info.Description = "Fire-risk prediction map: map state, feature interactions and live updates."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	m := metrics.Default()
	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		ctrl:     ctrl,
		renderer: renderer,
		hub:      live.NewHub(ctrl, m),
		metrics:  m,
		log:      logger.Named("server"),
	}
	humaAPI.UseMiddleware(s.instrument)

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Hub returns the websocket hub.
func (s *Server) Hub() *live.Hub { return s.hub }

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.ctrl))
	api.NewInfoHandler(s.ctrl.Config().Profile, s.config.Store).RegisterRoutes(s.humaAPI)

	// Live status stream using Huma + Datastar SDK
	live.NewStreamHandler(s.ctrl, s.renderer, s.metrics).RegisterRoutes(s.humaAPI)

	if s.config.Backend != nil {
		for _, prefix := range []string{"/get_city_preds/", "/get_tract_preds/", "/stats"} {
			s.mux.Handle(prefix, s.config.Backend)
		}
	}

	s.mux.Handle("/ws", s.hub)
	s.mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

// Run starts the websocket fan-out and the refresh loop, then serves HTTP
// on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go func() { _ = s.ctrl.Run(ctx) }()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info(ctx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// instrument records request counts and latencies per operation.
func (s *Server) instrument(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	path := ctx.URL().Path
	if op := ctx.Operation(); op != nil {
		path = op.Path
	}
	status := ctx.Status()
	if status == 0 {
		status = http.StatusOK
	}
	s.metrics.RecordHTTPRequest(path, ctx.Method(), strconv.Itoa(status), float64(time.Since(start).Milliseconds()))
}

// ViewerData feeds the viewer page.
type ViewerData struct {
	Title     string
	Locale    string
	APIBase   string
	StreamURL string
	WSPath    string
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := ViewerData{
		Title:     "firecaster",
		Locale:    s.ctrl.Config().DefaultLocale,
		APIBase:   "/api/v1",
		StreamURL: "/api/v1/map/stream",
		WSPath:    "/ws",
	}
	if err := s.renderer.Execute(w, "viewer", data); err != nil {
		s.log.Error(r.Context(), "rendering viewer", logger.Error(err))
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "firecaster",
		"status":  "running",
		"viewer":  "/viewer",
	})
}
