package backtest

import (
	"math"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/risk"
)

const tailConfidence = 0.95

// CalculateMetrics summarizes an equity curve.
// Years are (len(curve)-1)/periodsPerYear; ratios are 0 when undefined.
func CalculateMetrics(curve []contracts.PerformanceRecord, periodsPerYear int) contracts.Metrics {
	var m contracts.Metrics
	if len(curve) == 0 || periodsPerYear <= 0 {
		return m
	}

	initial := curve[0].Equity
	final := curve[len(curve)-1].Equity
	annualize := math.Sqrt(float64(periodsPerYear))

	// Total return / CAGR
	if initial > 0 {
		m.TotalReturn = final/initial - 1
		years := float64(len(curve)-1) / float64(periodsPerYear)
		if years > 0 && final > 0 {
			m.CAGR = math.Pow(final/initial, 1/years) - 1
		}
	}

	returns := periodicReturns(curve)

	// Volatility / Sharpe (risk-free 0)
	if sd := stdDev(returns); sd > 0 {
		m.Volatility = sd * annualize
		m.Sharpe = mean(returns) / sd * annualize
	}

	// Sortino (downside deviation around 0)
	if dd := downsideDeviation(returns); dd > 0 {
		m.Sortino = mean(returns) / dd * annualize
	}

	m.MaxDrawdown = calculateMaxDrawdown(curve)

	tail := risk.HistoricalVaR(returns, tailConfidence)
	m.VaR95 = tail.VaR
	m.CVaR95 = tail.CVaR

	return m
}

func periodicReturns(curve []contracts.PerformanceRecord) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// calculateMaxDrawdown is the largest (peak - equity) / peak
func calculateMaxDrawdown(curve []contracts.PerformanceRecord) float64 {
	if len(curve) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := curve[0].Equity
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - point.Equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mu := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mu
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

func downsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(len(values)))
}
