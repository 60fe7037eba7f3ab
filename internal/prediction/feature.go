package prediction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Property keys of the prediction backend, with camelCase aliases.
var (
	trackKeys  = []string{"tract_id", "trackId", "tractId"}
	sensorKeys = []string{"sensor_id", "sensorId"}
	scoreKeys  = []string{"pred_score", "predictionScore"}
)

// Feature is one geographic shape with its prediction attributes.
type Feature struct {
	TrackID  string
	SensorID string // empty when the feature has no sensor
	Score    Score
	// RawScore is the score as received, used for display.
	RawScore string
	Geometry orb.Geometry
}

// HasSensor reports whether the feature carries a sensor identifier.
func (f Feature) HasSensor() bool { return f.SensorID != "" }

// Bound is the bounding box of the feature geometry.
func (f Feature) Bound() orb.Bound { return f.Geometry.Bound() }

// PopupText is the popup content shown when a sensor feature is clicked.
func (f Feature) PopupText() string {
	return fmt.Sprintf("Tract ID:%s Prediction:%s", f.TrackID, f.RawScore)
}

// Decoded is the result of decoding a prediction response body.
type Decoded struct {
	Features []Feature
	// Unknown counts features whose score fell outside -1, 0, 1.
	Unknown int
	// Skipped lists why features were dropped; the rest of the batch is kept.
	Skipped []error
}

// ErrEmptyBody is returned for a response without content.
var ErrEmptyBody = errors.New("prediction: empty body")

// Decode parses a GeoJSON FeatureCollection or a bare JSON array of features.
func Decode(body []byte) (Decoded, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Decoded{}, ErrEmptyBody
	}

	var raw []*geojson.Feature
	if body[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return Decoded{}, fmt.Errorf("prediction: decoding feature list: %w", err)
		}
	} else {
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return Decoded{}, fmt.Errorf("prediction: decoding feature collection: %w", err)
		}
		raw = fc.Features
	}

	out := Decoded{Features: make([]Feature, 0, len(raw))}
	for i, gf := range raw {
		f, err := FromGeoJSON(gf)
		if err != nil {
			out.Skipped = append(out.Skipped, fmt.Errorf("feature %d: %w", i, err))
			continue
		}
		if !f.Score.Known() {
			out.Unknown++
		}
		out.Features = append(out.Features, f)
	}
	return out, nil
}

// FromGeoJSON converts one GeoJSON feature. Only a missing geometry or
// track id rejects it; an unexpected score becomes ScoreUnknown.
func FromGeoJSON(gf *geojson.Feature) (Feature, error) {
	if gf == nil || gf.Geometry == nil {
		return Feature{}, errors.New("missing geometry")
	}

	track := propString(gf.Properties, trackKeys)
	if track == "" && gf.ID != nil {
		track = scalarString(gf.ID)
	}
	if track == "" {
		return Feature{}, errors.New("missing tract_id")
	}

	f := Feature{
		TrackID:  track,
		SensorID: propString(gf.Properties, sensorKeys),
		Score:    ScoreUnknown,
		Geometry: gf.Geometry,
	}

	if v, ok := propValue(gf.Properties, scoreKeys); ok {
		if n, ok := number(v); ok {
			f.Score, _ = ParseScore(n)
			f.RawScore = FormatRaw(n)
		} else {
			f.RawScore = scalarString(v)
		}
	}
	return f, nil
}

// ToGeoJSON renders the feature back into GeoJSON with its attributes.
func (f Feature) ToGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.TrackID
	gf.Properties["tract_id"] = f.TrackID
	if f.HasSensor() {
		gf.Properties["sensor_id"] = f.SensorID
	}
	if f.Score.Known() {
		gf.Properties["pred_score"] = int(f.Score)
	} else {
		gf.Properties["pred_score"] = f.RawScore
	}
	gf.Properties["prediction"] = f.Score.Literal()
	return gf
}

func propValue(p geojson.Properties, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func propString(p geojson.Properties, keys []string) string {
	v, ok := propValue(p, keys)
	if !ok {
		return ""
	}
	return strings.TrimSpace(scalarString(v))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return FormatRaw(t)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}
