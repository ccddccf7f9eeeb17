// Package present derives display values from similarity scores.
package present

import (
	"fmt"
	"math"

	"nearword/internal/types"
)

// NotRanked is shown for guesses outside the tracked reference set.
const NotRanked = "not ranked"

// PercentileScale is the size of the reference set percentiles are expressed against.
const PercentileScale = 1000

type band struct {
	min   float64
	color string
	glyph string
}

// Ordered from the highest threshold down; the first match wins.
var bands = []band{
	{80, "#d7263d", "🔥"},
	{70, "#f46036", "🥵"},
	{60, "#f0a202", "😅"},
	{50, "#c5d86d", "🙂"},
	{40, "#1b998b", "😐"},
	{30, "#2e86ab", "🧊"},
	{20, "#5c6bc0", "🥶"},
	{math.Inf(-1), "#6c757d", "❄️"},
}

func bandFor(score float64) band {
	for _, b := range bands {
		if score >= b.min {
			return b
		}
	}
	return bands[len(bands)-1]
}

// SimilarityColor maps a score to a colour token.
func SimilarityColor(score float64) string {
	return bandFor(score).color
}

// TemperatureGlyph maps a score to an intensity glyph.
func TemperatureGlyph(score float64) string {
	return bandFor(score).glyph
}

// PercentileText renders a percentile as "<p>/1000", or NotRanked when absent.
func PercentileText(percentile *int) string {
	if percentile == nil {
		return NotRanked
	}
	return fmt.Sprintf("%d/%d", *percentile, PercentileScale)
}

// Decorated is a guess with its derived display values.
type Decorated struct {
	types.ScoredGuess
	Color          string `json:"color"`
	Glyph          string `json:"glyph"`
	PercentileText string `json:"percentile_text"`
}

func Decorate(g types.ScoredGuess) Decorated {
	return Decorated{
		ScoredGuess:    g,
		Color:          SimilarityColor(g.Similarity),
		Glyph:          TemperatureGlyph(g.Similarity),
		PercentileText: PercentileText(g.Percentile),
	}
}
