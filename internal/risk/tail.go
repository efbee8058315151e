package risk

import (
	"math"
	"sort"
)

// TailRisk is historical VaR/CVaR with losses expressed as positive fractions
type TailRisk struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"` // expected shortfall
}

// HistoricalVaR reads the (1-confidence) quantile of the return sample.
// CVaR averages every return at or below that quantile.
func HistoricalVaR(returns []float64, confidence float64) TailRisk {
	out := TailRisk{Confidence: confidence}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return out
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	// 손실은 양수로 표현, 이익이면 0
	out.VaR = math.Max(0, -sorted[idx])

	sum := 0.0
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	out.CVaR = math.Max(0, -sum/float64(idx+1))
	return out
}
