// Package style maps prediction scores onto the visual style of a feature.
package style

import "github.com/joeblew999/firecaster/internal/prediction"

// Fill colors per score bucket.
const (
	ColorDangerous     = "#c0392b"
	ColorSafe          = "#27ae60"
	ColorIndeterminate = "#f39c12"

	highlightColor = "#666"
)

// Style is the set of vector path options applied to a feature.
type Style struct {
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	Color       string  `json:"color"`
	DashArray   string  `json:"dashArray"`
	FillOpacity float64 `json:"fillOpacity"`
	FillColor   string  `json:"fillColor"`
}

// For returns the base style of a score. Unknown scores share the
// indeterminate bucket.
func For(s prediction.Score) Style {
	return Style{
		Weight:      2,
		Opacity:     1,
		Color:       "white",
		DashArray:   "3",
		FillOpacity: 0.7,
		FillColor:   FillColor(s),
	}
}

// FillColor is the fill of a score bucket.
func FillColor(s prediction.Score) string {
	switch s {
	case prediction.ScoreDangerous:
		return ColorDangerous
	case prediction.ScoreSafe:
		return ColorSafe
	default:
		return ColorIndeterminate
	}
}

// Highlight merges the hover style over base. The fill color is kept.
func Highlight(base Style) Style {
	base.Weight = 3
	base.Color = highlightColor
	base.DashArray = ""
	base.FillOpacity = 0.7
	return base
}

// LegendEntry is one row of the map legend.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend lists the score buckets in display order.
func Legend() []LegendEntry {
	return []LegendEntry{
		{Label: prediction.ScoreDangerous.Literal(), Color: ColorDangerous},
		{Label: prediction.ScoreSafe.Literal(), Color: ColorSafe},
		{Label: prediction.ScoreIndeterminate.Literal(), Color: ColorIndeterminate},
	}
}

// Properties flattens a style into GeoJSON feature properties.
func (s Style) Properties() map[string]any {
	return map[string]any{
		"weight":      s.Weight,
		"opacity":     s.Opacity,
		"color":       s.Color,
		"dashArray":   s.DashArray,
		"fillOpacity": s.FillOpacity,
		"fillColor":   s.FillColor,
	}
}
