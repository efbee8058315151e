package contracts

import "time"

// PerformanceRecord is one step of the equity curve
type PerformanceRecord struct {
	Date     time.Time `json:"date"`
	Equity   float64   `json:"equity"`
	Peak     float64   `json:"peak"`
	Drawdown float64   `json:"drawdown"` // (peak - equity) / peak
	Cash     float64   `json:"cash"`     // cash weight
}

// Metrics summarizes an equity curve
type Metrics struct {
	CAGR        float64 `json:"cagr"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalReturn float64 `json:"total_return"`
	Volatility  float64 `json:"volatility"` // annualized
	Sortino     float64 `json:"sortino"`
	VaR95       float64 `json:"var_95"`  // daily, loss positive
	CVaR95      float64 `json:"cvar_95"` // daily, loss positive
}

// BacktestResult is the BacktestSimulator output handed to reporting
type BacktestResult struct {
	RunID          string    `json:"run_id"`
	StrategyID     string    `json:"strategy_id"`
	ConfigHash     string    `json:"config_hash"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalEquity    float64   `json:"final_equity"`

	Metrics     Metrics             `json:"metrics"`
	EquityCurve []PerformanceRecord `json:"equity_curve"`
	Trades      []TradeEvent        `json:"trades"`

	FinalPositions []Position `json:"final_positions"`

	RebalanceCount int                      `json:"rebalance_count"`
	RegimeDampened int                      `json:"regime_dampened,omitempty"` // rebalances scaled by the regime filter
	TradeCounts    map[Action]int           `json:"trade_counts"`
	Ineligible     map[IneligibleReason]int `json:"ineligible"`
}
