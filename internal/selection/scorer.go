package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// degenerateScore is assigned when every instrument shares the same raw value
const degenerateScore = 50.0

// Scorer normalizes a snapshot and combines the signals into one composite score
// ⭐ SSOT: 종합 점수 계산은 여기서만
type Scorer struct {
	weights strategyconfig.RankingWeights
	logger  *logger.Logger
}

// NewScorer validates the weight vector and creates a scorer
func NewScorer(weights strategyconfig.RankingWeights, log *logger.Logger) (*Scorer, error) {
	for _, w := range []float64{weights.Momentum, weights.Quality, weights.RSI, weights.Sharpe, weights.MeanReversion} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("ranking weights must be finite and >= 0 (risk excepted)")
		}
	}
	if weights.Risk > 0 || math.IsNaN(weights.Risk) || math.IsInf(weights.Risk, 0) {
		return nil, fmt.Errorf("risk weight must be finite and <= 0")
	}
	if sum := weights.Sum(); sum <= 0 || sum > 1+1e-6 {
		return nil, fmt.Errorf("ranking weights must have a signed sum in (0, 1], got %.4f", sum)
	}

	return &Scorer{weights: weights, logger: log}, nil
}

// Score ranks the eligible instruments of a snapshot.
// Output is sorted by composite descending, ties by instrument ID ascending, ranks from 1.
func (s *Scorer) Score(snapshot contracts.SignalSnapshot) []contracts.ScoredInstrument {
	n := len(snapshot.Eligible)
	if n == 0 {
		return nil
	}

	columns := [6][]float64{}
	for k := range columns {
		columns[k] = make([]float64, n)
	}
	for i, e := range snapshot.Eligible {
		sig := e.Signals
		columns[0][i] = sig.Momentum
		columns[1][i] = sig.Quality
		columns[2][i] = -sig.VolatilityRisk // 크기 기준: 100 = 가장 변동성 큼
		columns[3][i] = sig.RSI
		columns[4][i] = sig.Sharpe
		columns[5][i] = sig.MeanReversion
	}
	for k := range columns {
		columns[k] = MinMax(columns[k])
	}

	scored := make([]contracts.ScoredInstrument, n)
	for i, e := range snapshot.Eligible {
		norm := contracts.SignalSet{
			Momentum:       columns[0][i],
			Quality:        columns[1][i],
			VolatilityRisk: columns[2][i],
			RSI:            columns[3][i],
			Sharpe:         columns[4][i],
			MeanReversion:  columns[5][i],
		}
		scored[i] = contracts.ScoredInstrument{
			Instrument: e.Instrument,
			Signals:    e.Signals,
			Normalized: norm,
			Composite:  s.Composite(norm),
			Volatility: e.Volatility,
		}
	}

	SortByComposite(scored)
	for i := range scored {
		scored[i].Rank = i + 1
	}

	s.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(snapshot.Date),
		"scored":    n,
		"top":       scored[0].Instrument.ID,
		"top_score": scored[0].Composite,
	}).Debug("Scoring completed")

	return scored
}

// Composite is the weighted sum of normalized signals clamped to [0,100]
func (s *Scorer) Composite(norm contracts.SignalSet) float64 {
	w := s.weights
	total := norm.Momentum*w.Momentum +
		norm.Quality*w.Quality +
		norm.VolatilityRisk*w.Risk +
		norm.RSI*w.RSI +
		norm.Sharpe*w.Sharpe +
		norm.MeanReversion*w.MeanReversion
	return clamp(total, 0, 100)
}

// MinMax rescales values onto [0,100] within the slice
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	for i, v := range values {
		if span == 0 {
			out[i] = degenerateScore
			continue
		}
		out[i] = (v - lo) / span * 100
	}
	return out
}

// SortByComposite orders by composite descending, instrument ID ascending on ties
func SortByComposite(scored []contracts.ScoredInstrument) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Composite != scored[j].Composite {
			return scored[i].Composite > scored[j].Composite
		}
		return scored[i].Instrument.ID < scored[j].Instrument.ID
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
