package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/portfolio"
	"github.com/wonny/aegis-momentum/internal/rebalance"
	"github.com/wonny/aegis-momentum/internal/risk"
	"github.com/wonny/aegis-momentum/internal/selection"
	"github.com/wonny/aegis-momentum/internal/signals"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
)

// Recommendation reasons
const (
	RecommendStopLoss   = "stop_loss"
	RecommendTakeProfit = "take_profit"
	RecommendHardCap    = "hard_cap"
	RecommendDropOut    = "dropped_out"
	RecommendNewEntry   = "new_entry"
	RecommendInTarget   = "in_target"
)

// Recommend scores the latest trading date at or before asOf and compares the
// target portfolio with the current holdings.
// Stop-loss and drop-outs sell, take-profit above the soft cap and the hard cap
// trim, new names buy, everything else holds.
func (e *Engine) Recommend(ctx context.Context, asOf time.Time, holdings []contracts.Holding) (*contracts.RecommendedPortfolio, error) {
	began := time.Now()
	asOf = contracts.Day(asOf)

	library, err := signals.NewLibrary(e.cfg.Signals, e.logger)
	if err != nil {
		return nil, err
	}
	scorer, err := selection.NewScorer(e.cfg.Ranking.Weights, e.logger)
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash config: %w", err)
	}

	// 하루짜리 구간이면 asOf 당일이 리밸런스 날짜
	ds, err := e.Prepare(ctx, asOf, asOf, library.WindowLength(), rebalance.MustParseFrequency("D"))
	if err != nil {
		return nil, err
	}

	m := ds.Input.Prices
	t, ok := m.ColumnAtOrBefore(asOf)
	if !ok {
		return nil, fmt.Errorf("%w: no trading date at or before %s", contracts.ErrNoMarketData, contracts.DateKey(asOf))
	}
	date := m.Date(t)

	snapshot := library.Compute(m, t, ds.Input.Universe.Active(asOf))
	scored := scorer.Score(snapshot)
	target := portfolio.NewSelector(e.cfg, e.logger).Select(date, scored, ds.Input.Universe.Fundamentals)

	var regime *contracts.RegimeStatus
	filter := portfolio.NewRegimeFilter(e.cfg, e.logger)
	if status, ok := filter.Assess(m, t); ok {
		filter.Apply(&target, status)
		regime = &status
	}

	composite := make(map[string]float64, len(scored))
	for _, s := range scored {
		composite[s.Instrument.ID] = s.Composite
	}

	rec := &contracts.RecommendedPortfolio{
		Date:        date,
		StrategyID:  e.cfg.Meta.StrategyID,
		ConfigHash:  hash,
		Cash:        target.Cash,
		Regime:      regime,
		GeneratedAt: e.now().UTC(),
	}

	manager := risk.NewManager(e.cfg.Risk, e.logger)
	held := make(map[string]struct{}, len(holdings))
	var exits []contracts.Recommendation

	for _, h := range holdings {
		held[h.InstrumentID] = struct{}{}
		inst, ok := ds.Input.Universe.Lookup(h.InstrumentID)
		if !ok {
			inst = contracts.Instrument{ID: h.InstrumentID}
		}
		tw, inTarget := target.Get(h.InstrumentID)

		line := contracts.Recommendation{
			Instrument:    inst,
			CurrentWeight: h.Weight,
			TargetWeight:  tw.Weight,
			Score:         composite[h.InstrumentID],
			Rank:          tw.Rank,
		}

		if decision, fired := e.checkHolding(manager, m, t, h, tw); fired {
			line.Action = decision.Action
			line.TargetWeight = decision.TargetWeight
			line.Reason = string(decision.Reason)
		} else if !inTarget {
			line.Action = contracts.ActionSell
			line.TargetWeight = 0
			line.Reason = RecommendDropOut
		} else {
			line.Action = contracts.ActionHold
			line.Reason = RecommendInTarget
		}

		if inTarget && line.Action != contracts.ActionSell {
			rec.Positions = append(rec.Positions, line)
		} else {
			exits = append(exits, line)
		}
	}

	for _, tw := range target.Positions {
		if _, ok := held[tw.Instrument.ID]; ok {
			continue
		}
		rec.Positions = append(rec.Positions, contracts.Recommendation{
			Instrument:   tw.Instrument,
			Action:       contracts.ActionBuy,
			TargetWeight: tw.Weight,
			Score:        tw.Score,
			Rank:         tw.Rank,
			Reason:       RecommendNewEntry,
		})
	}

	sort.SliceStable(rec.Positions, func(i, j int) bool { return rec.Positions[i].Rank < rec.Positions[j].Rank })
	sort.Slice(exits, func(i, j int) bool { return exits[i].Instrument.ID < exits[j].Instrument.ID })
	rec.Positions = append(rec.Positions, exits...)

	e.metrics.ObserveRecommendation(time.Since(began))
	e.logger.WithFields(map[string]interface{}{
		"date":       contracts.DateKey(date),
		"buy":        rec.Count(contracts.ActionBuy),
		"sell":       rec.Count(contracts.ActionSell),
		"trim":       rec.Count(contracts.ActionTrim),
		"hold":       rec.Count(contracts.ActionHold),
		"cash":       rec.Cash,
		"ineligible": len(snapshot.Ineligible),
	}).Info("Recommendation computed")

	return rec, nil
}

// checkHolding runs the risk rules on a holding marked at the date's close.
// A holding without a price on the matrix is not checked.
func (e *Engine) checkHolding(manager *risk.Manager, m *contracts.PriceMatrix, t int, h contracts.Holding, tw contracts.TargetWeight) (risk.Decision, bool) {
	r, ok := m.Row(h.InstrumentID)
	if !ok || h.EntryPrice <= 0 {
		return risk.Decision{}, false
	}
	last, ok := m.LastClose(r, t)
	if !ok {
		return risk.Decision{}, false
	}

	pos := &contracts.Position{
		Instrument:   m.Instrument(r),
		EntryPrice:   h.EntryPrice,
		TargetWeight: tw.Weight,
		Weight:       h.Weight,
		LastPrice:    last,
		State:        contracts.PositionOpen,
	}
	return manager.Check(pos)
}
