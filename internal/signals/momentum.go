package signals

// Momentum blends the lookback returns, in percent points.
// 1m=+15%, 3m=+35%, 6m=+60% at 0.3/0.4/0.3 gives 36.5.
func Momentum(closes []float64, lookbacks []int, weights []float64) (score float64, returns []float64, ok bool) {
	if len(lookbacks) != len(weights) {
		return 0, nil, false
	}
	returns = make([]float64, len(lookbacks))
	for i, lb := range lookbacks {
		r, ok := PeriodReturn(closes, lb)
		if !ok {
			return 0, nil, false
		}
		returns[i] = r
		score += weights[i] * r * 100
	}
	return score, returns, true
}
