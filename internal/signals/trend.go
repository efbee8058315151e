package signals

import (
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
)

// ReadTrend reads price, SMA, 3m/6m returns and RSI from a chronological window
func ReadTrend(closes []float64, smaWindow, lookback3M, lookback6M, rsiPeriod int) (contracts.TrendInputs, bool) {
	if len(closes) == 0 {
		return contracts.TrendInputs{}, false
	}
	sma, ok := SMA(closes, smaWindow)
	if !ok || sma == 0 {
		return contracts.TrendInputs{}, false
	}
	r3, ok := PeriodReturn(closes, lookback3M)
	if !ok {
		return contracts.TrendInputs{}, false
	}
	r6, ok := PeriodReturn(closes, lookback6M)
	if !ok {
		return contracts.TrendInputs{}, false
	}
	rsi, ok := RSI(closes, rsiPeriod)
	if !ok {
		return contracts.TrendInputs{}, false
	}

	return contracts.TrendInputs{
		Price:    closes[len(closes)-1],
		SMA:      sma,
		Return3M: r3,
		Return6M: r6,
		RSI:      rsi,
	}, true
}

// ClassifyTrend: above the SMA with enough 3m/6m return and RSI inside the band
// accumulates, below the SMA with a negative 6m return pauses, anything else is neutral.
func ClassifyTrend(in contracts.TrendInputs, rules strategyconfig.TrendRules) contracts.TrendState {
	switch {
	case in.Price > in.SMA &&
		in.Return3M >= rules.MinReturn3M &&
		in.Return6M >= rules.MinReturn6M &&
		in.RSI >= rules.RSILow && in.RSI <= rules.RSIHigh:
		return contracts.TrendAccumulate
	case in.Price < in.SMA && in.Return6M < 0:
		return contracts.TrendPause
	default:
		return contracts.TrendNeutral
	}
}
