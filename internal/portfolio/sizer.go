package portfolio

import (
	"errors"
	"math"
)

// ErrInvalidVolatility marks an instrument whose volatility cannot size a position
var ErrInvalidVolatility = errors.New("volatility must be positive and finite")

// Sizer converts composite score and volatility into a capped Kelly-style fraction
type Sizer struct {
	cap float64
}

// NewSizer creates a sizer with the given Kelly cap
func NewSizer(kellyCap float64) *Sizer {
	return &Sizer{cap: kellyCap}
}

// Size returns min(max(score,0) / volatility / 100, cap).
// score is the composite in [0,100], volatility is annualized percent.
// 80 / 30 / 100 = 0.0267
func (s *Sizer) Size(score, volatility float64) (float64, error) {
	if !(volatility > 0) || math.IsInf(volatility, 0) {
		return 0, ErrInvalidVolatility
	}
	if score < 0 || math.IsNaN(score) {
		score = 0
	}
	return math.Min(score/volatility/100, s.cap), nil
}
