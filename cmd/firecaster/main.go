package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/firecaster/internal/backend"
	"github.com/joeblew999/firecaster/internal/config"
	"github.com/joeblew999/firecaster/internal/fetcher"
	"github.com/joeblew999/firecaster/internal/server"
	"github.com/joeblew999/firecaster/internal/service"
	"github.com/joeblew999/firecaster/internal/store"
	"github.com/joeblew999/firecaster/pkg/logger"
)

// Options defines all CLI flags and env vars for the firecaster server.
// Flags: --host, --port, --profile, --config, --store, --dsn, --seed, --data-dir
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_PROFILE, ...
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	Profile string `doc:"Configuration profile (production, development)"`
	Config  string `doc:"Path to a YAML configuration file"`
	Store   string `doc:"Serve predictions in-process from this store (duckdb, postgres)"`
	DSN     string `doc:"Store connection string"`
	Seed    string `doc:"GeoJSON file loaded into the store for the configured city"`
	DataDir string `doc:"Directory for store files" default:".data"`
}

func loadConfig(opts *Options) *config.Config {
	cfg, err := config.Load(context.Background(), config.LoadOptions{Profile: opts.Profile, File: opts.Config})
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if err := logger.SetLevelString(cfg.EffectiveLogLevel()); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func openStore(ctx context.Context, driver, dsn, dataDir, seed, city string) *store.Store {
	st, err := store.Open(ctx, store.Config{Driver: driver, DSN: dsn, DataDir: dataDir})
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}
	if seed != "" {
		data, err := os.ReadFile(seed)
		if err != nil {
			log.Fatalf("Seed error: %v", err)
		}
		n, err := st.LoadGeoJSON(ctx, city, data)
		if err != nil {
			log.Fatalf("Seed error: %v", err)
		}
		fmt.Printf("  Seeded:  %d predictions for %s\n", n, city)
	}
	return st
}

func newServer(opts *Options, cfg *config.Config, backendHandler http.Handler) (*server.Server, *service.MapController) {
	ctrl, err := service.New(cfg)
	if err != nil {
		log.Fatalf("Map error: %v", err)
	}
	srv, err := server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		Store:   opts.Store,
		Backend: backendHandler,
	}, ctrl)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	return srv, ctrl
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			cfg := loadConfig(opts)

			fmt.Println()
			fmt.Printf("firecaster map server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Profile: %s (%s tiles)\n", cfg.Profile, cfg.MapProvider)

			var backendHandler http.Handler
			if opts.Store != "" {
				st := openStore(ctx, opts.Store, opts.DSN, opts.DataDir, opts.Seed, cfg.CityID)
				defer st.Close()
				backendHandler = backend.New(st, addr)
				local := *cfg
				local.APIBaseURL = fmt.Sprintf("http://127.0.0.1:%d", opts.Port)
				cfg = &local
				fmt.Printf("  Store:   %s\n", st.Driver())
			}
			fmt.Printf("  Backend: %s\n", cfg.PredictionsURL(cfg.CityID))

			srv, ctrl := newServer(opts, cfg, backendHandler)
			if err := ctrl.Init(ctx); err != nil {
				log.Fatalf("Map error: %v", err)
			}
			defer ctrl.Teardown()

			fmt.Println()
			fmt.Printf("  Pages:   %s/viewer\n", baseURL)
			fmt.Printf("  Live:    %s/api/v1/map/stream, ws://%s:%d/ws\n", baseURL, displayHost, opts.Port)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := srv.Run(ctx, addr); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "firecaster"
	cli.Root().Short = "Fire-risk prediction map server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, _ := newServer(opts, loadConfig(opts), nil)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// fetch subcommand: one prediction request, printed
	fetchCmd := &cobra.Command{
		Use:   "fetch [city]",
		Short: "Fetch predictions for a city once and print them",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg := loadConfig(opts)
			city := cfg.CityID
			if len(args) == 1 {
				city = args[0]
			}

			client := fetcher.New(cfg.APIBaseURL, cfg.FetchTimeout)
			res, err := client.Fetch(cmd.Context(), city)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching %s: %v\n", client.URL(city), err)
				os.Exit(1)
			}

			if asJSON, _ := cmd.Flags().GetBool("geojson"); asJSON {
				fc := geojson.NewFeatureCollection()
				for _, f := range res.Features {
					fc.Append(f.ToGeoJSON())
				}
				out, err := json.MarshalIndent(fc, "", "  ")
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error encoding features: %v\n", err)
					os.Exit(1)
				}
				fmt.Println(string(out))
				return
			}

			fmt.Printf("%s: %s in %s\n", client.URL(city), res.Status, res.Latency.Round(time.Millisecond))
			fmt.Printf("  features: %d  unknown scores: %d  skipped: %d\n", len(res.Features), res.Unknown, len(res.Skipped))
			for _, f := range res.Features {
				fmt.Printf("  %-16s %-14s sensor=%s\n", f.TrackID, f.Score.Literal(), f.SensorID)
			}
		}),
	}
	fetchCmd.Flags().Bool("geojson", false, "Print the features as GeoJSON")
	cli.Root().AddCommand(fetchCmd)

	// backend subcommand: standalone development prediction service
	backendCmd := &cobra.Command{
		Use:   "backend",
		Short: "Serve stored predictions on the prediction service endpoints",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			driver, _ := cmd.Flags().GetString("driver")
			listen, _ := cmd.Flags().GetString("listen")
			city, _ := cmd.Flags().GetString("city")

			fmt.Printf("firecaster prediction backend on http://%s\n", listen)
			st := openStore(ctx, driver, opts.DSN, opts.DataDir, opts.Seed, city)
			defer st.Close()

			srv := &http.Server{Addr: listen, Handler: backend.New(st, listen), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Backend error: %v", err)
			}
		}),
	}
	backendCmd.Flags().String("driver", store.DriverDuckDB, "Store driver (duckdb, postgres)")
	backendCmd.Flags().String("listen", "127.0.0.1:5000", "Address to listen on")
	backendCmd.Flags().String("city", "nyc", "City the seed file is stored under")
	cli.Root().AddCommand(backendCmd)

	cli.Run()
}
