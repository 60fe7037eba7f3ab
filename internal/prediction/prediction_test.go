package prediction

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		in    float64
		want  Score
		known bool
	}{
		{-1, ScoreIndeterminate, true},
		{0, ScoreSafe, true},
		{1, ScoreDangerous, true},
		{2, ScoreUnknown, false},
		{0.5, ScoreUnknown, false},
		{-7, ScoreUnknown, false},
	}
	for _, c := range cases {
		got, known := ParseScore(c.in)
		if got != c.want || known != c.known {
			t.Errorf("ParseScore(%v) = %v,%v want %v,%v", c.in, got, known, c.want, c.known)
		}
	}
}

func TestScoreLiteral(t *testing.T) {
	if ScoreDangerous.Literal() != "Dangerous" || ScoreSafe.Literal() != "Safe" {
		t.Fatal("unexpected literal for dangerous/safe")
	}
	if ScoreUnknown.Literal() != "Unknown" || ScoreUnknown.String() != "unknown" {
		t.Fatal("unexpected literal for unknown")
	}
	if ScoreIndeterminate.String() != "-1" {
		t.Fatalf("String() = %q", ScoreIndeterminate.String())
	}
}

const collection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-74.0,40.6],[-73.9,40.6],[-73.9,40.7],[-74.0,40.7],[-74.0,40.6]]]},
     "properties": {"tract_id": "T1", "sensor_id": "S1", "pred_score": 1}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.95, 40.65]},
     "properties": {"tract_id": 36061, "pred_score": 0}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.95, 40.66]},
     "properties": {"tract_id": "T3", "sensor_id": null, "pred_score": 7}},
    {"type": "Feature", "geometry": null, "properties": {"tract_id": "T4", "pred_score": 1}}
  ]
}`

func TestDecodeFeatureCollection(t *testing.T) {
	d, err := Decode([]byte(collection))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Features) != 3 {
		t.Fatalf("features = %d, want 3", len(d.Features))
	}
	if len(d.Skipped) != 1 {
		t.Fatalf("skipped = %d, want 1", len(d.Skipped))
	}
	if d.Unknown != 1 {
		t.Fatalf("unknown = %d, want 1", d.Unknown)
	}

	t1 := d.Features[0]
	if t1.TrackID != "T1" || t1.SensorID != "S1" || t1.Score != ScoreDangerous || !t1.HasSensor() {
		t.Fatalf("unexpected T1: %+v", t1)
	}
	if got := t1.PopupText(); got != "Tract ID:T1 Prediction:1" {
		t.Fatalf("popup = %q", got)
	}

	t2 := d.Features[1]
	if t2.TrackID != "36061" || t2.HasSensor() || t2.Score != ScoreSafe {
		t.Fatalf("unexpected numeric tract: %+v", t2)
	}

	t3 := d.Features[2]
	if t3.Score != ScoreUnknown || t3.RawScore != "7" || t3.HasSensor() {
		t.Fatalf("unexpected unknown-score feature: %+v", t3)
	}
}

func TestDecodeFeatureArray(t *testing.T) {
	body := `[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"trackId":"A","sensorId":"S","predictionScore":-1}}]`
	d, err := Decode([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Features) != 1 || d.Features[0].Score != ScoreIndeterminate || d.Features[0].SensorID != "S" {
		t.Fatalf("unexpected decode: %+v", d)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("  ")); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("empty body err = %v", err)
	}
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
	if _, err := Decode([]byte(`[{"type":"Nope"}]`)); err == nil {
		t.Fatal("expected error for non-feature entries")
	}
}

func TestFeatureRoundTripProperties(t *testing.T) {
	f := Feature{TrackID: "T9", SensorID: "S9", Score: ScoreSafe, RawScore: "0", Geometry: orb.Point{1, 2}}
	gf := f.ToGeoJSON()
	if gf.Properties["tract_id"] != "T9" || gf.Properties["sensor_id"] != "S9" || gf.Properties["pred_score"] != 0 {
		t.Fatalf("unexpected properties: %v", gf.Properties)
	}
	if gf.Properties["prediction"] != "Safe" {
		t.Fatalf("prediction literal = %v", gf.Properties["prediction"])
	}
}
