package signals

// TrendQuality = |SMA(short) - SMA(long)| / SMA(long) x stability,
// stability = 1 / (1 + factor x daily_std).
// Undefined when SMA(long) is zero or the window is shorter than long.
func TrendQuality(closes []float64, short, long int, factor, dailyStd float64) (float64, bool) {
	smaShort, ok := SMA(closes, short)
	if !ok {
		return 0, false
	}
	smaLong, ok := SMA(closes, long)
	if !ok || smaLong == 0 {
		return 0, false
	}

	strength := smaShort - smaLong
	if strength < 0 {
		strength = -strength
	}
	stability := 1 / (1 + factor*dailyStd)
	return strength / smaLong * stability, true
}
