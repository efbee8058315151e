package portfolio

import (
	"math"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/signals"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// RegimeFilter dampens target weights while the benchmark is cautious.
// The released weight goes to cash; ranks and membership are unchanged.
type RegimeFilter struct {
	cfg     strategyconfig.Regime
	signals strategyconfig.Signals
	window  int
	logger  *logger.Logger
}

// NewRegimeFilter returns nil when the regime filter is disabled
func NewRegimeFilter(cfg *strategyconfig.Config, log *logger.Logger) *RegimeFilter {
	if !cfg.Regime.Enabled {
		return nil
	}
	return &RegimeFilter{
		cfg:     cfg.Regime,
		signals: cfg.Signals,
		window:  cfg.Regime.WindowLength(cfg.Signals),
		logger:  log,
	}
}

// Assess reads the benchmark at column t.
// ok=false when the benchmark is missing or its history is too short.
func (f *RegimeFilter) Assess(m *contracts.PriceMatrix, t int) (contracts.RegimeStatus, bool) {
	if f == nil {
		return contracts.RegimeStatus{}, false
	}
	r, ok := m.Row(f.cfg.BenchmarkID)
	if !ok {
		return contracts.RegimeStatus{}, false
	}
	closes := m.Window(r, t, f.window)
	if closes == nil {
		return contracts.RegimeStatus{}, false
	}

	lb := f.signals.Momentum.LookbacksDays
	inputs, ok := signals.ReadTrend(closes, f.cfg.SMAWindow, lb[1], lb[2], f.signals.RSI.Period)
	if !ok {
		return contracts.RegimeStatus{}, false
	}

	state := signals.ClassifyTrend(inputs, f.cfg.Trend)
	status := contracts.RegimeStatus{
		Benchmark: f.cfg.BenchmarkID,
		Date:      m.Date(t),
		Inputs:    inputs,
		State:     state,
		Cautious:  state == contracts.TrendPause || inputs.Price < inputs.SMA,
		Scale:     1,
	}
	if status.Cautious {
		status.Scale = 1 - f.cfg.ReduceFraction
	}
	return status, true
}

// Apply scales every target weight by status.Scale and moves the rest to cash
func (f *RegimeFilter) Apply(target *contracts.TargetPortfolio, status contracts.RegimeStatus) {
	if f == nil || !status.Cautious {
		return
	}
	for i := range target.Positions {
		target.Positions[i].Weight *= status.Scale
	}
	target.Cash = math.Max(0, 1-target.TotalWeight())

	f.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(status.Date),
		"benchmark": status.Benchmark,
		"state":     string(status.State),
		"price":     status.Inputs.Price,
		"sma":       status.Inputs.SMA,
		"scale":     status.Scale,
	}).Debug("Regime dampener applied")
}
