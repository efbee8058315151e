package contracts

import "time"

// SignalSet is the fixed set of six raw signals for one (instrument, date).
// Named fields instead of a map: a missing signal is a compile error, not a missing key.
type SignalSet struct {
	Momentum       float64 `json:"momentum"`
	Quality        float64 `json:"quality"`
	VolatilityRisk float64 `json:"volatility_risk"` // 음수 (penalty)
	RSI            float64 `json:"rsi"`
	Sharpe         float64 `json:"sharpe"`
	MeanReversion  float64 `json:"mean_reversion"`
}

// IneligibleReason explains why an instrument was left out of a date's ranking
type IneligibleReason string

const (
	ReasonNoPrice             IneligibleReason = "no_price"
	ReasonInsufficientHistory IneligibleReason = "insufficient_history"
	ReasonZeroSMA             IneligibleReason = "zero_sma"
	ReasonZeroVolatility      IneligibleReason = "zero_volatility"
	ReasonZeroDeviation       IneligibleReason = "zero_deviation"
	ReasonNotInMatrix         IneligibleReason = "not_in_matrix"
)

// InstrumentSignals is the SignalLibrary output for one eligible instrument
type InstrumentSignals struct {
	Instrument Instrument `json:"instrument"`
	Signals    SignalSet  `json:"signals"`

	// raw inputs kept for sizing, filters and reports
	Close      float64 `json:"close"`
	Volatility float64 `json:"volatility"` // annualized, percent
	Return1M   float64 `json:"return_1m"`
	Return3M   float64 `json:"return_3m"`
	Return6M   float64 `json:"return_6m"`
	RSIValue   float64 `json:"rsi_value"`
}

// SignalSnapshot is the cross-section of signals for one date
type SignalSnapshot struct {
	Date       time.Time                   `json:"date"`
	Eligible   []InstrumentSignals         `json:"eligible"` // ordered by instrument ID
	Ineligible map[string]IneligibleReason `json:"ineligible"`
}

// IneligibleCounts aggregates exclusions by reason
func (s SignalSnapshot) IneligibleCounts() map[IneligibleReason]int {
	counts := make(map[IneligibleReason]int)
	for _, reason := range s.Ineligible {
		counts[reason]++
	}
	return counts
}

// ScoredInstrument is one row of the CompositeScorer output
type ScoredInstrument struct {
	Instrument Instrument `json:"instrument"`
	Signals    SignalSet  `json:"signals"`
	Normalized SignalSet  `json:"normalized"` // each in [0,100]; risk normalized on magnitude
	Composite  float64    `json:"composite"`
	Volatility float64    `json:"volatility"` // annualized, percent
	Rank       int        `json:"rank"`
}
