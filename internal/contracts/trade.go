package contracts

import "time"

// TradeReason tags why a trade happened
type TradeReason string

const (
	ReasonRebalanceEntry  TradeReason = "rebalance_entry"
	ReasonRebalanceResize TradeReason = "rebalance_resize"
	ReasonRebalanceExit   TradeReason = "rebalance_exit"
	ReasonStopLoss        TradeReason = "stop_loss"
	ReasonTakeProfit      TradeReason = "take_profit"
	ReasonHardCap         TradeReason = "hard_cap"
)

// TradeEvent is one simulated fill.
// Quantity is always positive; WeightDelta is signed (negative for sells and trims).
type TradeEvent struct {
	Date         time.Time   `json:"date"`
	InstrumentID string      `json:"instrument_id"`
	Sector       string      `json:"sector,omitempty"`
	Action       Action      `json:"action"`
	Reason       TradeReason `json:"reason"`
	Quantity     float64     `json:"quantity"`
	WeightDelta  float64     `json:"weight_delta"`
	Price        float64     `json:"price"`
	Value        float64     `json:"value"`
	Cost         float64     `json:"cost"`
}
