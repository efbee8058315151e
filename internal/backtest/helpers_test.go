package backtest

import (
	"math"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// businessDays returns n weekdays starting 2023-01-02 (a Monday)
func businessDays(n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC); len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// wavySeries drifts linearly with a deterministic oscillation; open equals close
func wavySeries(inst contracts.Instrument, dates []time.Time, base, drift, amp, phase float64) contracts.PriceSeries {
	s := contracts.PriceSeries{Instrument: inst}
	for i, d := range dates {
		c := base*(1+drift*float64(i)) + amp*math.Sin(float64(i)*0.7+phase)
		s.Bars = append(s.Bars, contracts.PriceBar{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1000})
	}
	return s
}

func syntheticUniverse(n int) ([]contracts.PriceSeries, contracts.Universe) {
	dates := businessDays(n)
	sectors := []string{"Tech", "Energy", "Health"}
	drifts := []float64{0.004, 0.002, -0.001, 0.003, 0.0005, 0.0025, -0.002, 0.0015}

	var series []contracts.PriceSeries
	var instruments []contracts.Instrument
	for i, drift := range drifts {
		inst := contracts.Instrument{ID: string(rune('A' + i)), Sector: sectors[i%len(sectors)]}
		instruments = append(instruments, inst)
		series = append(series, wavySeries(inst, dates, 50+float64(i)*10, drift, 1+float64(i%3), float64(i)))
	}
	return series, contracts.NewUniverse(instruments)
}
