package strategyconfig

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/aegis-momentum/internal/rebalance"
)

const weightEpsilon = 1e-6

// ValidationError 검증 실패 (엔진 생성 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks every hard constraint. A failure is fatal: no simulation step may run.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Signals ===
	m := cfg.Signals.Momentum
	if len(m.LookbacksDays) != 3 {
		return ValidationError{"signals.momentum.lookbacks_days", "must list exactly three lookbacks (1m, 3m, 6m)"}
	}
	if len(m.Weights) != len(m.LookbacksDays) {
		return ValidationError{"signals.momentum", "lookbacks_days length must match weights length"}
	}
	for i, lb := range m.LookbacksDays {
		if lb <= 0 || (i > 0 && lb <= m.LookbacksDays[i-1]) {
			return ValidationError{"signals.momentum.lookbacks_days", "must be positive and strictly increasing"}
		}
	}
	for _, w := range m.Weights {
		if w < 0 || !finite(w) {
			return ValidationError{"signals.momentum.weights", "must be finite and >= 0"}
		}
	}
	if err := validateWeightsSum(m.Weights, 1.0, weightEpsilon); err != nil {
		return ValidationError{"signals.momentum.weights", err.Error()}
	}

	q := cfg.Signals.Quality
	if q.SMAShort <= 0 || q.SMALong <= q.SMAShort {
		return ValidationError{"signals.quality", "must satisfy 0 < sma_short < sma_long"}
	}
	if q.StabilityFactor < 0 {
		return ValidationError{"signals.quality.stability_factor", "must be >= 0"}
	}
	if cfg.Signals.RSI.Period < 2 {
		return ValidationError{"signals.rsi.period", "must be >= 2"}
	}
	if cfg.Signals.MeanReversion.Window < 2 {
		return ValidationError{"signals.mean_reversion.window", "must be >= 2"}
	}
	if cfg.Signals.AnnualizationDays <= 0 {
		return ValidationError{"signals.annualization_days", "must be > 0"}
	}

	// === Ranking ===
	if err := validateRankingWeights(cfg.Ranking.Weights); err != nil {
		return err
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if p.TopN <= 0 {
		return ValidationError{"portfolio.top_n", "must be > 0"}
	}
	if p.Weighting != WeightingEqual && p.Weighting != WeightingKelly {
		return ValidationError{"portfolio.weighting", "must be equal or kelly"}
	}
	if err := validateCap(p.KellyCap, "portfolio.kelly_cap"); err != nil {
		return err
	}
	if p.VolatilityCapPct < 0 {
		return ValidationError{"portfolio.volatility_cap_pct", "must be >= 0 (0 disables)"}
	}
	if p.MinComposite < 0 || p.MinComposite >= 100 {
		return ValidationError{"portfolio.min_composite", "must be in [0, 100)"}
	}
	if p.Sector.MaxPositions < 0 {
		return ValidationError{"portfolio.sector.max_positions", "must be >= 0 (0 = unlimited)"}
	}
	if p.Sector.OverrideScore < 0 || p.Sector.OverrideScore > 100 {
		return ValidationError{"portfolio.sector.override_score", "must be in [0, 100]"}
	}
	if err := validateCap(p.Sector.MaxWeight, "portfolio.sector.max_weight"); err != nil {
		return err
	}
	if f := p.Fundamentals; f.Enabled {
		if f.MinMarketCap < 0 || f.MaxPE < 0 || f.MaxDebtToEquity < 0 {
			return ValidationError{"portfolio.fundamentals", "thresholds must be >= 0"}
		}
	}

	// === Risk ===
	r := cfg.Risk
	if r.StopLossPct <= -1 || r.StopLossPct >= 0 {
		return ValidationError{"risk.stop_loss_pct", "must be in (-1, 0)"}
	}
	if r.TakeProfitPct <= 0 {
		return ValidationError{"risk.take_profit_pct", "must be > 0"}
	}
	if err := validateCap(r.MaxWeight, "risk.max_weight"); err != nil {
		return err
	}
	if err := validateCap(r.HardCapWeight, "risk.hard_cap_weight"); err != nil {
		return err
	}
	if r.MaxWeight > r.HardCapWeight {
		return ValidationError{"risk", "max_weight (soft cap) must be <= hard_cap_weight"}
	}
	if r.RebalanceBand < 0 || r.SoftBand() <= 0 {
		return ValidationError{"risk.rebalance_band", "must be in [0, max_weight)"}
	}

	// === Rebalance ===
	if _, err := rebalance.ParseFrequency(cfg.Rebalance.Frequency); err != nil {
		return ValidationError{"rebalance.frequency", err.Error()}
	}

	// === Regime ===
	if g := cfg.Regime; g.Enabled {
		if g.BenchmarkID == "" {
			return ValidationError{"regime.benchmark_id", "required when the regime filter is enabled"}
		}
		if g.SMAWindow < 2 {
			return ValidationError{"regime.sma_window", "must be >= 2"}
		}
		if g.ReduceFraction < 0 || g.ReduceFraction > 1 || !finite(g.ReduceFraction) {
			return ValidationError{"regime.reduce_fraction", "must be in [0, 1]"}
		}
		if tr := g.Trend; tr.RSILow < 0 || tr.RSIHigh > 100 || tr.RSILow >= tr.RSIHigh {
			return ValidationError{"regime.trend", "must satisfy 0 <= rsi_low < rsi_high <= 100"}
		}
	}

	// === Backtest ===
	b := cfg.Backtest
	if b.InitialCapital <= 0 {
		return ValidationError{"backtest.initial_capital", "must be > 0"}
	}
	if b.CommissionBps < 0 {
		return ValidationError{"backtest.commission_bps", "must be >= 0"}
	}
	if b.SlippageBps < 0 {
		return ValidationError{"backtest.slippage_bps", "must be >= 0"}
	}
	if b.PeriodsPerYear <= 0 {
		return ValidationError{"backtest.periods_per_year", "must be > 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if sum := cfg.Ranking.Weights.Sum(); math.Abs(sum-1) > weightEpsilon {
		warnings = append(warnings, Warning{
			Code:    "COMPOSITE_CEILING",
			Message: fmt.Sprintf("ranking weights sum to %.2f: composite scores stay below 100", sum),
		})
	}

	if cfg.Portfolio.Weighting == WeightingKelly && cfg.Portfolio.KellyCap > cfg.Risk.MaxWeight {
		warnings = append(warnings, Warning{
			Code:    "KELLY_ABOVE_SOFT_CAP",
			Message: "kelly_cap > risk.max_weight: kelly sizes are clipped to the soft cap",
		})
	}

	if float64(cfg.Portfolio.TopN)*cfg.Risk.MaxWeight < 1 {
		warnings = append(warnings, Warning{
			Code:    "STRUCTURAL_CASH",
			Message: "top_n * max_weight < 1: the portfolio can never be fully invested",
		})
	}

	if cfg.Portfolio.VolatilityCapPct == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_VOLATILITY_CAP",
			Message: "volatility cap disabled",
		})
	}

	if cfg.Backtest.CommissionBps == 0 && cfg.Backtest.SlippageBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COSTS",
			Message: "no commission or slippage: backtest returns are optimistic",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateRankingWeights enforces sign conventions and a signed sum in (0, 1].
// Vectors summing to exactly 1.0 give composite = exact weighted sum.
func validateRankingWeights(w RankingWeights) error {
	named := []struct {
		field string
		value float64
	}{
		{"momentum", w.Momentum},
		{"quality", w.Quality},
		{"risk", w.Risk},
		{"rsi", w.RSI},
		{"sharpe", w.Sharpe},
		{"mean_reversion", w.MeanReversion},
	}
	for _, n := range named {
		if !finite(n.value) {
			return ValidationError{"ranking.weights." + n.field, "must be finite"}
		}
		if n.field == "risk" {
			if n.value > 0 {
				return ValidationError{"ranking.weights.risk", "must be <= 0 (penalty)"}
			}
			continue
		}
		if n.value < 0 {
			return ValidationError{"ranking.weights." + n.field, "must be >= 0"}
		}
	}

	sum := w.Sum()
	if sum <= 0 || sum > 1+weightEpsilon {
		return ValidationError{"ranking.weights", fmt.Sprintf("signed sum must be in (0, 1], got %.4f", sum)}
	}
	return nil
}

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// validateCap requires a fraction in (0, 1]
func validateCap(v float64, field string) error {
	if !(v > 0 && v <= 1) {
		return ValidationError{field, "must be in (0, 1]"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
