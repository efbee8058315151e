package signals

import "math"

// RSI is the simple-average (Cutler) RSI over the last period price changes.
// A flat window reads as neutral 50.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gain, loss float64
	tail := closes[len(closes)-period-1:]
	for i := 1; i < len(tail); i++ {
		delta := tail[i] - tail[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}

	switch {
	case gain == 0 && loss == 0:
		return 50, true
	case loss == 0:
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

// RSIConfirmation maps RSI onto [0,1], peaking at 50
func RSIConfirmation(rsi float64) float64 {
	return 1 - math.Abs(rsi-50)/50
}

// MeanReversion is the negative z-score of the last close against its window mean.
// Undefined when the window deviation is zero.
func MeanReversion(closes []float64, window int) (float64, bool) {
	sma, ok := SMA(closes, window)
	if !ok {
		return 0, false
	}
	sd, ok := StdDev(closes, window)
	if !ok || sd == 0 {
		return 0, false
	}
	return -(closes[len(closes)-1] - sma) / sd, true
}
