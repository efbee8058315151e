package strategyconfig

// Config is the single typed strategy record. It is populated once (defaults,
// then YAML, then CLI overrides), validated, and never mutated during a run.
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Signals   Signals   `yaml:"signals" json:"signals"`
	Ranking   Ranking   `yaml:"ranking" json:"ranking"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Risk      Risk      `yaml:"risk" json:"risk"`
	Rebalance Rebalance `yaml:"rebalance" json:"rebalance"`
	Regime    Regime    `yaml:"regime" json:"regime"`
	Backtest  Backtest  `yaml:"backtest" json:"backtest"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Signals configures the SignalLibrary
type Signals struct {
	Momentum          Momentum      `yaml:"momentum" json:"momentum"`
	Quality           Quality       `yaml:"quality" json:"quality"`
	RSI               RSI           `yaml:"rsi" json:"rsi"`
	MeanReversion     MeanReversion `yaml:"mean_reversion" json:"mean_reversion"`
	AnnualizationDays int           `yaml:"annualization_days" json:"annualization_days"`
}

// Momentum blends 1/3/6-month returns
type Momentum struct {
	LookbacksDays []int     `yaml:"lookbacks_days" json:"lookbacks_days"` // 1m, 3m, 6m
	Weights       []float64 `yaml:"weights" json:"weights"`
}

// Quality is the SMA trend-strength signal
type Quality struct {
	SMAShort        int     `yaml:"sma_short" json:"sma_short"`
	SMALong         int     `yaml:"sma_long" json:"sma_long"`
	StabilityFactor float64 `yaml:"stability_factor" json:"stability_factor"`
}

type RSI struct {
	Period int `yaml:"period" json:"period"`
}

type MeanReversion struct {
	Window int `yaml:"window" json:"window"`
}

// WindowLength is the number of closes an instrument needs to be eligible
func (s Signals) WindowLength() int {
	n := 0
	if len(s.Momentum.LookbacksDays) > 0 {
		n = s.Momentum.LookbacksDays[len(s.Momentum.LookbacksDays)-1] + 1
	}
	for _, m := range []int{s.Quality.SMALong, s.RSI.Period + 1, s.MeanReversion.Window} {
		if m > n {
			n = m
		}
	}
	return n
}

// Ranking configures the CompositeScorer
type Ranking struct {
	Weights RankingWeights `yaml:"weights" json:"weights"`
}

// RankingWeights is the composite weight vector. Risk carries a negative sign.
type RankingWeights struct {
	Momentum      float64 `yaml:"momentum" json:"momentum"`
	Quality       float64 `yaml:"quality" json:"quality"`
	Risk          float64 `yaml:"risk" json:"risk"`
	RSI           float64 `yaml:"rsi" json:"rsi"`
	Sharpe        float64 `yaml:"sharpe" json:"sharpe"`
	MeanReversion float64 `yaml:"mean_reversion" json:"mean_reversion"`
}

// Sum returns the signed sum of the weights
func (w RankingWeights) Sum() float64 {
	return w.Momentum + w.Quality + w.Risk + w.RSI + w.Sharpe + w.MeanReversion
}

// Weighting modes
const (
	WeightingEqual = "equal"
	WeightingKelly = "kelly"
)

// Portfolio configures the PositionSizer and PortfolioSelector
type Portfolio struct {
	TopN             int                `yaml:"top_n" json:"top_n"`
	Weighting        string             `yaml:"weighting" json:"weighting"`
	KellyCap         float64            `yaml:"kelly_cap" json:"kelly_cap"`
	VolatilityCapPct float64            `yaml:"volatility_cap_pct" json:"volatility_cap_pct"` // 0 disables
	MinComposite     float64            `yaml:"min_composite" json:"min_composite"`
	Sector           SectorConstraints  `yaml:"sector" json:"sector"`
	Fundamentals     FundamentalFilters `yaml:"fundamentals" json:"fundamentals"`
}

// SectorConstraints caps concentration per sector
type SectorConstraints struct {
	MaxPositions  int     `yaml:"max_positions" json:"max_positions"`   // 0 = unlimited
	OverrideScore float64 `yaml:"override_score" json:"override_score"` // 0 = no override
	MaxWeight     float64 `yaml:"max_weight" json:"max_weight"`
}

// FundamentalFilters are hard filters for long-horizon variants
type FundamentalFilters struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	MinMarketCap    float64 `yaml:"min_market_cap" json:"min_market_cap"`
	MaxPE           float64 `yaml:"max_pe" json:"max_pe"`
	MinROE          float64 `yaml:"min_roe" json:"min_roe"`
	MaxDebtToEquity float64 `yaml:"max_debt_to_equity" json:"max_debt_to_equity"`
	MinProfitMargin float64 `yaml:"min_profit_margin" json:"min_profit_margin"`
}

// Risk configures the RiskManager.
// Soft band floor = MaxWeight - RebalanceBand, soft cap = MaxWeight, ceiling = HardCapWeight.
type Risk struct {
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`     // negative fraction
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct"` // positive fraction
	MaxWeight     float64 `yaml:"max_weight" json:"max_weight"`
	HardCapWeight float64 `yaml:"hard_cap_weight" json:"hard_cap_weight"`
	RebalanceBand float64 `yaml:"rebalance_band" json:"rebalance_band"`
}

// SoftBand returns the lower edge of the tolerated drift band
func (r Risk) SoftBand() float64 {
	return r.MaxWeight - r.RebalanceBand
}

// Rebalance configures the RebalanceScheduler
type Rebalance struct {
	Frequency string `yaml:"frequency" json:"frequency"`
}

// Regime scales target weights down while a benchmark is in a cautious trend.
// Cautious = benchmark close below its SMA, or trend state PAUSE.
type Regime struct {
	Enabled        bool       `yaml:"enabled" json:"enabled"`
	BenchmarkID    string     `yaml:"benchmark_id" json:"benchmark_id"`
	SMAWindow      int        `yaml:"sma_window" json:"sma_window"`
	ReduceFraction float64    `yaml:"reduce_fraction" json:"reduce_fraction"` // weights *= 1 - reduce_fraction
	Trend          TrendRules `yaml:"trend" json:"trend"`
}

// TrendRules classify a series as ACCUMULATE, NEUTRAL or PAUSE.
// Returns are fractions over the 3m and 6m momentum lookbacks.
type TrendRules struct {
	MinReturn3M float64 `yaml:"min_return_3m" json:"min_return_3m"`
	MinReturn6M float64 `yaml:"min_return_6m" json:"min_return_6m"`
	RSILow      float64 `yaml:"rsi_low" json:"rsi_low"`
	RSIHigh     float64 `yaml:"rsi_high" json:"rsi_high"`
}

// WindowLength is the number of benchmark closes the regime reading needs
func (r Regime) WindowLength(s Signals) int {
	n := r.SMAWindow
	if len(s.Momentum.LookbacksDays) > 0 {
		if lb := s.Momentum.LookbacksDays[len(s.Momentum.LookbacksDays)-1] + 1; lb > n {
			n = lb
		}
	}
	if s.RSI.Period+1 > n {
		n = s.RSI.Period + 1
	}
	return n
}

// Backtest configures the simulator
type Backtest struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	CommissionBps  float64 `yaml:"commission_bps" json:"commission_bps"`
	SlippageBps    float64 `yaml:"slippage_bps" json:"slippage_bps"`
	PeriodsPerYear int     `yaml:"periods_per_year" json:"periods_per_year"`
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	out := *c
	out.Signals.Momentum.LookbacksDays = append([]int(nil), c.Signals.Momentum.LookbacksDays...)
	out.Signals.Momentum.Weights = append([]float64(nil), c.Signals.Momentum.Weights...)
	return &out
}
