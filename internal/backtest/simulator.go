// Package backtest drives the time-stepped strategy simulation and computes
// its performance metrics.
package backtest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/portfolio"
	"github.com/wonny/aegis-momentum/internal/rebalance"
	"github.com/wonny/aegis-momentum/internal/risk"
	"github.com/wonny/aegis-momentum/internal/selection"
	"github.com/wonny/aegis-momentum/internal/signals"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// runNamespace scopes deterministic run IDs
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("aegis-momentum/backtest"))

// Input is the data of one run, fully materialized before the first step.
// Prices may start before Start so the first signal windows are filled.
type Input struct {
	Prices   *contracts.PriceMatrix
	Universe contracts.Universe
	Start    time.Time // zero = first matrix date
	End      time.Time // zero = last matrix date
}

// Simulator runs backtests for one immutable strategy config.
// It holds no run state, so one Simulator may serve concurrent runs.
// ⭐ SSOT: 백테스팅 시뮬레이션은 여기서만
type Simulator struct {
	cfg      *strategyconfig.Config
	hash     string
	freq     rebalance.Frequency
	library  *signals.Library
	scorer   *selection.Scorer
	selector *portfolio.Selector
	regime   *portfolio.RegimeFilter // nil when disabled
	risk     *risk.Manager
	costRate float64
	logger   *logger.Logger
}

// NewSimulator validates the config and wires the strategy components.
// An invalid config is fatal here, before any step runs.
func NewSimulator(cfg *strategyconfig.Config, log *logger.Logger) (*Simulator, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	cfg = cfg.Clone()

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash config: %w", err)
	}
	freq, err := rebalance.ParseFrequency(cfg.Rebalance.Frequency)
	if err != nil {
		return nil, err
	}
	library, err := signals.NewLibrary(cfg.Signals, log)
	if err != nil {
		return nil, err
	}
	scorer, err := selection.NewScorer(cfg.Ranking.Weights, log)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		cfg:      cfg,
		hash:     hash,
		freq:     freq,
		library:  library,
		scorer:   scorer,
		selector: portfolio.NewSelector(cfg, log),
		regime:   portfolio.NewRegimeFilter(cfg, log),
		risk:     risk.NewManager(cfg.Risk, log),
		costRate: (cfg.Backtest.CommissionBps + cfg.Backtest.SlippageBps) / 10_000,
		logger:   log,
	}, nil
}

// ConfigHash returns the SHA-256 of the strategy config
func (s *Simulator) ConfigHash() string {
	return s.hash
}

// RunID identifies a run by config hash, simulated date range and instrument set.
// Identical inputs give the same ID; another range or universe gives a new one.
func (s *Simulator) RunID(universe contracts.Universe, start, end time.Time) string {
	ids := make([]string, 0, len(universe.Instruments))
	for _, inst := range universe.Instruments {
		ids = append(ids, inst.ID)
	}
	sort.Strings(ids)

	key := strings.Join([]string{
		s.hash,
		contracts.DateKey(start),
		contracts.DateKey(end),
		strings.Join(ids, ","),
	}, "|")
	return uuid.NewSHA1(runNamespace, []byte(key)).String()
}

// Run simulates every matrix date in [Start, End] in strict order
func (s *Simulator) Run(in Input) (*contracts.BacktestResult, error) {
	if in.Prices == nil {
		return nil, fmt.Errorf("%w: no price matrix", contracts.ErrNoMarketData)
	}
	steps := stepColumns(in.Prices, in.Start, in.End)
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no trading dates between %s and %s",
			contracts.ErrNoMarketData, contracts.DateKey(in.Start), contracts.DateKey(in.End))
	}

	first, last := in.Prices.Date(steps[0]), in.Prices.Date(steps[len(steps)-1])
	runID := s.RunID(in.Universe, first, last)

	s.logger.WithFields(map[string]interface{}{
		"run_id":      runID,
		"strategy":    s.cfg.Meta.StrategyID,
		"start_date":  contracts.DateKey(first),
		"end_date":    contracts.DateKey(last),
		"steps":       len(steps),
		"instruments": len(in.Universe.Instruments),
	}).Info("Starting backtest")

	st := newRunState(in, s.cfg.Backtest.InitialCapital, s.costRate)
	scheduler := rebalance.NewScheduler(s.freq)

	for _, t := range steps {
		if err := s.step(st, scheduler, t); err != nil {
			return nil, err
		}
	}

	result := s.buildResult(runID, st)

	s.logger.WithFields(map[string]interface{}{
		"run_id":       runID,
		"rebalances":   result.RebalanceCount,
		"trades":       len(result.Trades),
		"final_equity": result.FinalEquity,
		"cagr":         fmt.Sprintf("%.2f%%", result.Metrics.CAGR*100),
		"sharpe":       fmt.Sprintf("%.2f", result.Metrics.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.Metrics.MaxDrawdown*100),
	}).Info("Backtest completed")

	return result, nil
}

// step advances one date: settle exits, risk checks, rebalance, mark, record
func (s *Simulator) step(st *runState, scheduler *rebalance.Scheduler, t int) error {
	date := st.prices.Date(t)

	st.mark(t)

	// 1. 전일 손절 플래그 체결 (오늘 시가)
	st.settleExits(t, date)

	// 2. Risk rules on today's close
	st.portfolio.Reweight()
	for _, d := range s.risk.Evaluate(st.portfolio.Positions()) {
		s.applyDecision(st, t, date, d)
	}

	// 3. Scheduled rebalance
	if scheduler.ShouldRebalance(date) {
		if err := s.rebalance(st, t, date); err != nil {
			return err
		}
	}

	// 4. Mark-to-market, 5. record
	st.record(date)
	return nil
}

func (s *Simulator) applyDecision(st *runState, t int, date time.Time, d risk.Decision) {
	pos, ok := st.portfolio.Get(d.InstrumentID)
	if !ok {
		return
	}

	if d.State == contracts.PositionStoppedOut {
		pos.State = contracts.PositionStoppedOut
		r, _ := st.prices.Row(d.InstrumentID)
		price, col, ok := st.prices.NextTradable(r, t)
		if !ok {
			s.logger.WithField("instrument", d.InstrumentID).Warn("No tradable bar after stop-out; held at last close")
			return
		}
		st.pending[d.InstrumentID] = pendingExit{col: col, price: price}
		return
	}

	equity := st.portfolio.Equity()
	qty := (d.CurrentWeight - d.TargetWeight) * equity / pos.LastPrice
	st.sell(date, pos, qty, pos.LastPrice, contracts.ActionTrim, d.Reason, equity)
	pos.State = contracts.PositionTrimmed
}

type buyOrder struct {
	target contracts.TargetWeight
	pos    *contracts.Position // nil for a new name
	value  float64
}

// rebalance replaces live holdings with the selector's target.
// Sells run first; buys are scaled down to the cash they release.
func (s *Simulator) rebalance(st *runState, t int, date time.Time) error {
	snapshot := s.library.Compute(st.prices, t, st.universe.Active(date))
	for reason, n := range snapshot.IneligibleCounts() {
		st.ineligible[reason] += n
	}
	scored := s.scorer.Score(snapshot)
	target := s.selector.Select(date, scored, st.universe.Fundamentals)
	if status, ok := s.regime.Assess(st.prices, t); ok && status.Cautious {
		s.regime.Apply(&target, status)
		st.dampened++
	}
	st.rebalances++

	st.portfolio.Reweight()
	equity := st.portfolio.Equity()

	// 1. Exits: live holdings that dropped out of the target
	for _, pos := range st.portfolio.Positions() {
		if !pos.State.Live() {
			continue
		}
		if _, keep := target.Get(pos.Instrument.ID); keep {
			continue
		}
		st.sell(date, pos, pos.Quantity, pos.LastPrice, contracts.ActionSell, contracts.ReasonRebalanceExit, equity)
		pos.State = contracts.PositionClosed
		st.portfolio.Remove(pos.Instrument.ID)
	}

	// 2. Resizes and new entries
	var buys []buyOrder
	for _, tw := range target.Positions {
		pos, held := st.portfolio.Get(tw.Instrument.ID)
		switch {
		case held && !pos.State.Live():
			// flagged for exit this period: not re-bought
		case held:
			pos.TargetWeight = tw.Weight
			if s.risk.InBand(pos.Weight, tw.Weight) {
				continue // HOLD
			}
			if pos.Weight > tw.Weight {
				qty := (pos.Weight - tw.Weight) * equity / pos.LastPrice
				st.sell(date, pos, qty, pos.LastPrice, contracts.ActionTrim, contracts.ReasonRebalanceResize, equity)
				continue
			}
			buys = append(buys, buyOrder{target: tw, pos: pos, value: (tw.Weight - pos.Weight) * equity})
		default:
			buys = append(buys, buyOrder{target: tw, value: tw.Weight * equity})
		}
	}

	// 3. Buys, scaled to available cash including costs
	gross := 0.0
	for _, o := range buys {
		gross += o.value * (1 + s.costRate)
	}
	scale := 1.0
	if gross > st.portfolio.Cash {
		scale = 0
		if st.portfolio.Cash > 0 {
			scale = st.portfolio.Cash / gross
		}
	}

	for _, o := range buys {
		value := o.value * scale
		if value <= 0 {
			continue
		}

		if o.pos != nil {
			st.buy(date, o.pos, value/o.pos.LastPrice, o.pos.LastPrice, contracts.ReasonRebalanceResize, equity)
			o.pos.StopLossPrice, o.pos.TakeProfitPrice = s.risk.Levels(o.pos.EntryPrice)
			continue
		}

		r, _ := st.prices.Row(o.target.Instrument.ID)
		price, ok := st.prices.Close(r, t)
		if !ok || price <= 0 {
			continue
		}
		stop, takeProfit := s.risk.Levels(price)
		pos := &contracts.Position{
			Instrument:      o.target.Instrument,
			EntryDate:       date,
			StopLossPrice:   stop,
			TakeProfitPrice: takeProfit,
			TargetWeight:    o.target.Weight,
			LastPrice:       price,
			State:           contracts.PositionOpen,
		}
		if err := st.portfolio.Add(pos); err != nil {
			return err
		}
		st.buy(date, pos, value/price, price, contracts.ReasonRebalanceEntry, equity)
	}

	s.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(date),
		"eligible":  len(snapshot.Eligible),
		"selected":  target.Count(),
		"positions": st.portfolio.Len(),
		"cash":      st.portfolio.Cash,
	}).Debug("Rebalanced")

	return nil
}

func (s *Simulator) buildResult(runID string, st *runState) *contracts.BacktestResult {
	counts := make(map[contracts.Action]int)
	for _, tr := range st.trades {
		counts[tr.Action]++
	}

	positions := st.portfolio.Positions()
	final := make([]contracts.Position, len(positions))
	for i, pos := range positions {
		final[i] = *pos
	}

	last := st.curve[len(st.curve)-1]
	return &contracts.BacktestResult{
		RunID:          runID,
		StrategyID:     s.cfg.Meta.StrategyID,
		ConfigHash:     s.hash,
		StartDate:      st.curve[0].Date,
		EndDate:        last.Date,
		InitialCapital: s.cfg.Backtest.InitialCapital,
		FinalEquity:    last.Equity,
		Metrics:        CalculateMetrics(st.curve, s.cfg.Backtest.PeriodsPerYear),
		EquityCurve:    st.curve,
		Trades:         st.trades,
		FinalPositions: final,
		RebalanceCount: st.rebalances,
		RegimeDampened: st.dampened,
		TradeCounts:    counts,
		Ineligible:     st.ineligible,
	}
}

// stepColumns returns the matrix columns within [start, end]
func stepColumns(m *contracts.PriceMatrix, start, end time.Time) []int {
	var cols []int
	for j, d := range m.Dates() {
		if !start.IsZero() && d.Before(contracts.Day(start)) {
			continue
		}
		if !end.IsZero() && d.After(contracts.Day(end)) {
			break
		}
		cols = append(cols, j)
	}
	return cols
}
