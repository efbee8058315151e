package signals

import "math"

// VolatilityRisk is the penalty -sigma/(1+sigma) x 100 for an annualized sigma
func VolatilityRisk(sigma float64) float64 {
	return -sigma / (1 + sigma) * 100
}

// Sharpe is mean/std x sqrt(periods); undefined when std is zero
func Sharpe(returns []float64, periods int) (float64, bool) {
	sd, ok := StdDev(returns, len(returns))
	if !ok || sd == 0 {
		return 0, false
	}
	return mean(returns) / sd * math.Sqrt(float64(periods)), true
}
