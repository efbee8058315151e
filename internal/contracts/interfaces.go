package contracts

import (
	"context"
	"time"
)

// MarketDataProvider returns daily history for one instrument.
// A failure is per instrument and must not affect other fetches.
type MarketDataProvider interface {
	GetHistory(ctx context.Context, instrument Instrument, start, end time.Time) (PriceSeries, error)
}

// UniverseProvider lists the investable instruments on a date
type UniverseProvider interface {
	List(ctx context.Context, date time.Time) ([]Instrument, error)
}

// FundamentalsProvider is implemented by universe sources that also carry fundamentals
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context) (map[string]Fundamentals, error)
}
