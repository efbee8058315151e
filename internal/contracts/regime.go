package contracts

import "time"

// TrendState is the trend classification of one series on one date
type TrendState string

const (
	TrendAccumulate TrendState = "ACCUMULATE"
	TrendNeutral    TrendState = "NEUTRAL"
	TrendPause      TrendState = "PAUSE"
)

// TrendInputs are the readings a trend state is classified from.
// Returns are fractions; RSI is 0-100.
type TrendInputs struct {
	Price    float64 `json:"price"`
	SMA      float64 `json:"sma"`
	Return3M float64 `json:"return_3m"`
	Return6M float64 `json:"return_6m"`
	RSI      float64 `json:"rsi"`
}

// RegimeStatus is the benchmark reading applied to a target portfolio
type RegimeStatus struct {
	Benchmark string      `json:"benchmark"`
	Date      time.Time   `json:"date"`
	Inputs    TrendInputs `json:"inputs"`
	State     TrendState  `json:"state"`
	Cautious  bool        `json:"cautious"`
	Scale     float64     `json:"scale"` // 1 when not cautious
}
