package domain

import "fmt"

// RiskCategory is one band of the ordered severity scale.
// Rank 0 is the most severe; higher ranks are progressively safer.
type RiskCategory struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Color string `json:"color"` // hex display color, e.g. "#FF4B4B"
}

// SeverityScale is an ordered list of risk categories, most severe first.
// The scale length is independent of the model's cluster count: sorted
// positions beyond the scale receive generated fallback categories, so any
// cluster count yields a total mapping.
type SeverityScale []RiskCategory

// fallbackColor marks generated categories for clusters beyond the scale.
const fallbackColor = "#808080"

// DefaultSeverityScale returns the three-band scale the flood dashboard
// ships with: Severe, Caution, Safe.
func DefaultSeverityScale() SeverityScale {
	return SeverityScale{
		{Rank: 0, Name: "Severe", Color: "#FF4B4B"},
		{Rank: 1, Name: "Caution", Color: "#FFA500"},
		{Rank: 2, Name: "Safe", Color: "#28A745"},
	}
}

// CategoryAt returns the category for sorted position i. Positions inside
// the scale use the configured bands; positions beyond it get a neutral
// "Level {i}" category. Rank always equals the position, so ranks increase
// strictly across the whole ordering regardless of how the scale was built.
func (s SeverityScale) CategoryAt(i int) RiskCategory {
	if i < len(s) {
		c := s[i]
		c.Rank = i
		return c
	}
	return RiskCategory{
		Rank:  i,
		Name:  fmt.Sprintf("Level %d", i),
		Color: fallbackColor,
	}
}
