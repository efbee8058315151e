package contracts

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidSeries marks a malformed price series (unordered dates, non-positive close)
	ErrInvalidSeries = errors.New("invalid price series")
	// ErrNoMarketData is returned when no instrument produced any bar for the requested range
	ErrNoMarketData = errors.New("no market data for range")
	// ErrInstrumentNotFound is returned by providers for unknown tickers
	ErrInstrumentNotFound = errors.New("instrument not found")
)

// PriceBar is one daily OHLCV observation
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is the ordered bar history of one instrument
type PriceSeries struct {
	Instrument Instrument `json:"instrument"`
	Bars       []PriceBar `json:"bars"`
}

// Validate checks strictly increasing dates and positive finite closes.
// Zero volume is a valid bar.
func (s PriceSeries) Validate() error {
	for i, bar := range s.Bars {
		if bar.Close <= 0 || math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
			return fmt.Errorf("%w: %s bar %d has close %v", ErrInvalidSeries, s.Instrument.ID, i, bar.Close)
		}
		if i > 0 && !Day(bar.Date).After(Day(s.Bars[i-1].Date)) {
			return fmt.Errorf("%w: %s dates not strictly increasing at %s",
				ErrInvalidSeries, s.Instrument.ID, DateKey(bar.Date))
		}
	}
	return nil
}

// Between returns the bars with start <= date <= end
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	start, end = Day(start), Day(end)
	out := PriceSeries{Instrument: s.Instrument}
	for _, bar := range s.Bars {
		d := Day(bar.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Bars = append(out.Bars, bar)
	}
	return out
}
