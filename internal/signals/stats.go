package signals

import "math"

// Window statistics. Every function reads closes oldest first.

// SMA is the mean of the last n closes; ok=false when the window is short
func SMA(closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-n:] {
		sum += c
	}
	return sum / float64(n), true
}

// StdDev is the sample standard deviation of the last n values
func StdDev(values []float64, n int) (float64, bool) {
	if n < 2 || len(values) < n {
		return 0, false
	}
	tail := values[len(values)-n:]
	mean, _ := SMA(tail, n)
	ss := 0.0
	for _, v := range tail {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1)), true
}

// Returns converts closes into simple daily returns
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// PeriodReturn is closes[last]/closes[last-days] - 1
func PeriodReturn(closes []float64, days int) (float64, bool) {
	n := len(closes)
	if days <= 0 || n < days+1 {
		return 0, false
	}
	past := closes[n-1-days]
	if past == 0 {
		return 0, false
	}
	return closes[n-1]/past - 1, true
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
