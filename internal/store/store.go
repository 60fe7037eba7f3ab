// Package store keeps stored predictions for the development prediction
// backend. DuckDB and PostgreSQL are supported through sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/firecaster/internal/prediction"
)

// Drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for an unsupported driver.
var ErrUnknownDriver = errors.New("store: unknown driver")

// Config holds database configuration.
type Config struct {
	Driver string
	// DSN is the connection string. For DuckDB an empty DSN means an
	// in-memory database, and a plain name is placed under DataDir.
	DSN     string
	DataDir string
}

// Store reads and writes predictions.
type Store struct {
	db     *sqlx.DB
	driver string
}

// row is one stored prediction.
type row struct {
	CityID   string         `db:"city_id"`
	TractID  string         `db:"tract_id"`
	SensorID sql.NullString `db:"sensor_id"`
	Score    float64        `db:"pred_score"`
	Geometry string         `db:"geometry"`
}

const schema = `CREATE TABLE IF NOT EXISTS predictions (
	city_id    VARCHAR NOT NULL,
	tract_id   VARCHAR NOT NULL,
	sensor_id  VARCHAR,
	pred_score DOUBLE PRECISION NOT NULL,
	geometry   VARCHAR NOT NULL
)`

// Open connects to the database and creates the predictions table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var dsn string
	switch cfg.Driver {
	case DriverDuckDB:
		path, err := duckdbPath(cfg)
		if err != nil {
			return nil, err
		}
		dsn = path
	case DriverPostgres:
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverDuckDB {
		// a single connection keeps an in-memory database alive and shared
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return &Store{db: db, driver: cfg.Driver}, nil
}

func duckdbPath(cfg Config) (string, error) {
	if cfg.DSN == "" || cfg.DSN == ":memory:" {
		return "", nil
	}
	if strings.ContainsAny(cfg.DSN, `/\`) || cfg.DataDir == "" {
		return cfg.DSN, nil
	}
	dir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create duckdb directory: %w", err)
	}
	return filepath.Join(dir, cfg.DSN+".duckdb"), nil
}

// Driver names the database driver.
func (s *Store) Driver() string { return s.driver }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// CityPredictions returns the predictions of a city. No rows is not an error.
func (s *Store) CityPredictions(ctx context.Context, cityID string) ([]prediction.Feature, error) {
	return s.query(ctx, `SELECT city_id, tract_id, sensor_id, pred_score, geometry
		FROM predictions WHERE city_id = ? ORDER BY tract_id`, cityID)
}

// TractPredictions returns the predictions of one tract across cities.
func (s *Store) TractPredictions(ctx context.Context, tractID string) ([]prediction.Feature, error) {
	return s.query(ctx, `SELECT city_id, tract_id, sensor_id, pred_score, geometry
		FROM predictions WHERE tract_id = ? ORDER BY city_id`, tractID)
}

func (s *Store) query(ctx context.Context, q string, arg string) ([]prediction.Feature, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), arg); err != nil {
		return nil, fmt.Errorf("store: querying predictions: %w", err)
	}

	out := make([]prediction.Feature, 0, len(rows))
	for _, r := range rows {
		f, err := r.feature()
		if err != nil {
			return nil, fmt.Errorf("store: tract %s: %w", r.TractID, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r row) feature() (prediction.Feature, error) {
	g, err := geojson.UnmarshalGeometry([]byte(r.Geometry))
	if err != nil {
		return prediction.Feature{}, fmt.Errorf("decoding geometry: %w", err)
	}
	score, _ := prediction.ParseScore(r.Score)
	return prediction.Feature{
		TrackID:  r.TractID,
		SensorID: r.SensorID.String,
		Score:    score,
		RawScore: prediction.FormatRaw(r.Score),
		Geometry: g.Coordinates,
	}, nil
}

// Put replaces the predictions of a city.
func (s *Store) Put(ctx context.Context, cityID string, features []prediction.Feature) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM predictions WHERE city_id = ?`), cityID); err != nil {
		return fmt.Errorf("store: clearing city %s: %w", cityID, err)
	}

	insert := tx.Rebind(`INSERT INTO predictions (city_id, tract_id, sensor_id, pred_score, geometry) VALUES (?, ?, ?, ?, ?)`)
	for _, f := range features {
		geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return fmt.Errorf("store: encoding geometry of %s: %w", f.TrackID, err)
		}
		sensor := sql.NullString{String: f.SensorID, Valid: f.HasSensor()}
		if _, err := tx.ExecContext(ctx, insert, cityID, f.TrackID, sensor, scoreValue(f), string(geom)); err != nil {
			return fmt.Errorf("store: inserting %s: %w", f.TrackID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored predictions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM predictions`); err != nil {
		return 0, fmt.Errorf("store: counting: %w", err)
	}
	return n, nil
}

// LoadGeoJSON stores a prediction GeoJSON document under cityID and returns
// the number of features kept.
func (s *Store) LoadGeoJSON(ctx context.Context, cityID string, data []byte) (int, error) {
	decoded, err := prediction.Decode(data)
	if err != nil {
		return 0, err
	}
	if err := s.Put(ctx, cityID, decoded.Features); err != nil {
		return 0, err
	}
	return len(decoded.Features), nil
}

func scoreValue(f prediction.Feature) float64 {
	if f.Score.Known() {
		return float64(f.Score)
	}
	var v float64
	if _, err := fmt.Sscan(f.RawScore, &v); err == nil {
		return v
	}
	return float64(f.Score)
}
