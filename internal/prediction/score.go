// Package prediction holds the fire-risk prediction domain: the score
// classification, the features a prediction response carries and how they
// are decoded.
package prediction

import (
	"math"
	"strconv"
)

// Score is the classification a feature carries.
type Score int

const (
	ScoreIndeterminate Score = -1
	ScoreSafe          Score = 0
	ScoreDangerous     Score = 1
	// ScoreUnknown stands for any value outside -1, 0, 1.
	ScoreUnknown Score = math.MinInt32
)

// ParseScore maps a raw numeric score onto the classification. The second
// result is false when the value is outside the known domain.
func ParseScore(v float64) (Score, bool) {
	switch v {
	case -1:
		return ScoreIndeterminate, true
	case 0:
		return ScoreSafe, true
	case 1:
		return ScoreDangerous, true
	}
	return ScoreUnknown, false
}

// Known reports whether s is one of -1, 0, 1.
func (s Score) Known() bool {
	return s == ScoreIndeterminate || s == ScoreSafe || s == ScoreDangerous
}

// Literal is the human readable label of a score.
func (s Score) Literal() string {
	switch s {
	case ScoreDangerous:
		return "Dangerous"
	case ScoreSafe:
		return "Safe"
	case ScoreIndeterminate:
		return "Indeterminate"
	default:
		return "Unknown"
	}
}

func (s Score) String() string {
	if !s.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(s))
}

// FormatRaw renders a raw score the way it arrived: 1 stays "1", 0.5 stays "0.5".
func FormatRaw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
