package marketdata

import (
	"errors"
	"fmt"
	"time"
)

// ErrLowQuality is returned when a load does not pass the quality gate
var ErrLowQuality = errors.New("market data below quality threshold")

// QualityConfig holds the quality gate thresholds
type QualityConfig struct {
	MinInstrumentCoverage float64 // instruments with bars / requested
	MinLatestCoverage     float64 // instruments with a bar on the last date / instruments with any bar
}

// DefaultQualityConfig requires 80% of the universe and half of it on the last date
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinInstrumentCoverage: 0.80,
		MinLatestCoverage:     0.50,
	}
}

// QualitySnapshot is the gate verdict for one load
type QualitySnapshot struct {
	Date         time.Time          `json:"date"` // last matrix date
	Requested    int                `json:"requested"`
	Loaded       int                `json:"loaded"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Reasons      []string           `json:"reasons,omitempty"`
}

// QualityGate validates a LoadResult before any signal is computed
// ⭐ SSOT: 시세 품질 검증은 여기서만
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config QualityConfig) *QualityGate {
	return &QualityGate{config: config}
}

// Check scores a load.
// Coverage keys: instruments, latest, continuity (observed cells between each
// instrument's first and last bar).
func (g *QualityGate) Check(res *LoadResult) *QualitySnapshot {
	rows, cols := res.Matrix.Dims()
	snap := &QualitySnapshot{
		Requested: res.Requested,
		Loaded:    len(res.Series),
		Coverage:  make(map[string]float64, 3),
	}
	snap.Coverage["instruments"] = res.Coverage

	if cols > 0 && rows > 0 {
		last := cols - 1
		snap.Date = res.Matrix.Date(last)

		onLast, withBars, observed, span := 0, 0, 0, 0
		for r := 0; r < rows; r++ {
			if _, ok := res.Matrix.Close(r, last); ok {
				onLast++
			}
			first, end := -1, -1
			for t := 0; t < cols; t++ {
				if _, ok := res.Matrix.Close(r, t); ok {
					if first < 0 {
						first = t
					}
					end = t
					observed++
				}
			}
			if first >= 0 {
				withBars++
				span += end - first + 1
			}
		}
		if withBars > 0 {
			snap.Coverage["latest"] = float64(onLast) / float64(withBars)
		}
		if span > 0 {
			snap.Coverage["continuity"] = float64(observed) / float64(span)
		}
	}

	snap.QualityScore = g.calculateScore(snap.Coverage)

	if c := snap.Coverage["instruments"]; c < g.config.MinInstrumentCoverage {
		snap.Reasons = append(snap.Reasons,
			fmt.Sprintf("instrument coverage %.2f < %.2f", c, g.config.MinInstrumentCoverage))
	}
	if c := snap.Coverage["latest"]; c < g.config.MinLatestCoverage {
		snap.Reasons = append(snap.Reasons,
			fmt.Sprintf("latest-date coverage %.2f < %.2f", c, g.config.MinLatestCoverage))
	}
	snap.Passed = len(snap.Reasons) == 0
	return snap
}

// Err returns ErrLowQuality with the failed checks, or nil when the snapshot passed
func (s *QualitySnapshot) Err() error {
	if s.Passed {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrLowQuality, s.Reasons)
}

// calculateScore is the weighted average of the coverage ratios
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"instruments": 0.50,
		"latest":      0.30,
		"continuity":  0.20,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}
	return score
}
