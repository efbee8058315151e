package backtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

func syntheticInput(t *testing.T, days, warmup int) Input {
	t.Helper()
	series, universe := syntheticUniverse(days)
	m, err := contracts.NewPriceMatrix(series)
	require.NoError(t, err)
	return Input{Prices: m, Universe: universe, Start: m.Date(warmup)}
}

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Portfolio.TopN = 0

	_, err := NewSimulator(cfg, logger.Nop())
	require.Error(t, err)
	var verr strategyconfig.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSimulator_NoDataInRange(t *testing.T) {
	sim, err := NewSimulator(strategyconfig.Default(), logger.Nop())
	require.NoError(t, err)

	in := syntheticInput(t, 150, 130)
	in.Start = in.Prices.Date(149).AddDate(1, 0, 0)

	_, err = sim.Run(in)
	assert.ErrorIs(t, err, contracts.ErrNoMarketData)

	_, err = sim.Run(Input{})
	assert.ErrorIs(t, err, contracts.ErrNoMarketData)
}

func TestSimulator_Deterministic(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Backtest.CommissionBps = 5
	cfg.Backtest.SlippageBps = 5

	in := syntheticInput(t, 260, 130)

	sim1, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)
	sim2, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)

	r1, err := sim1.Run(in)
	require.NoError(t, err)
	r2, err := sim2.Run(in)
	require.NoError(t, err)

	b1, err := json.Marshal(r1)
	require.NoError(t, err)
	b2, err := json.Marshal(r2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
	assert.Equal(t, r1.RunID, r2.RunID)
	assert.Len(t, r1.EquityCurve, 130)
}

func TestSimulator_RunIDPerRange(t *testing.T) {
	sim, err := NewSimulator(strategyconfig.Default(), logger.Nop())
	require.NoError(t, err)

	early, err := sim.Run(syntheticInput(t, 260, 130))
	require.NoError(t, err)
	late, err := sim.Run(syntheticInput(t, 260, 200))
	require.NoError(t, err)
	again, err := sim.Run(syntheticInput(t, 260, 200))
	require.NoError(t, err)

	assert.Equal(t, early.ConfigHash, late.ConfigHash)
	assert.NotEqual(t, early.RunID, late.RunID, "same config over another range is another run")
	assert.Equal(t, late.RunID, again.RunID)

	in := syntheticInput(t, 260, 200)
	in.Universe = contracts.NewUniverse(in.Universe.Instruments[:4])
	narrow, err := sim.Run(in)
	require.NoError(t, err)
	assert.NotEqual(t, late.RunID, narrow.RunID)
}

func TestSimulator_Invariants(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Portfolio.VolatilityCapPct = 0
	sim, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(syntheticInput(t, 260, 130))
	require.NoError(t, err)

	require.NotEmpty(t, res.Trades)
	assert.Greater(t, res.RebalanceCount, 20, "weekly over ~26 weeks")
	assert.Equal(t, res.TradeCounts[contracts.ActionBuy] > 0, true)

	last := res.EquityCurve[len(res.EquityCurve)-1]
	total := last.Cash
	for _, pos := range res.FinalPositions {
		total += pos.Weight
		assert.LessOrEqual(t, pos.Weight, cfg.Risk.HardCapWeight+1e-9)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.LessOrEqual(t, len(res.FinalPositions), cfg.Portfolio.TopN)

	prevDate := res.EquityCurve[0].Date
	for _, rec := range res.EquityCurve[1:] {
		assert.True(t, rec.Date.After(prevDate))
		assert.GreaterOrEqual(t, rec.Peak, rec.Equity)
		assert.GreaterOrEqual(t, rec.Drawdown, 0.0)
		prevDate = rec.Date
	}
	assert.LessOrEqual(t, res.Metrics.MaxDrawdown, 1.0)
}

func TestSimulator_CostsReduceEquity(t *testing.T) {
	in := syntheticInput(t, 220, 130)

	free := strategyconfig.Default()
	costly := strategyconfig.Default()
	costly.Backtest.CommissionBps = 25
	costly.Backtest.SlippageBps = 25

	simFree, err := NewSimulator(free, logger.Nop())
	require.NoError(t, err)
	simCostly, err := NewSimulator(costly, logger.Nop())
	require.NoError(t, err)

	rFree, err := simFree.Run(in)
	require.NoError(t, err)
	rCostly, err := simCostly.Run(in)
	require.NoError(t, err)

	assert.Less(t, rCostly.EquityCurve[0].Equity, rFree.EquityCurve[0].Equity)
	assert.NotEqual(t, rFree.RunID, rCostly.RunID)

	totalCost := 0.0
	for _, tr := range rCostly.Trades {
		totalCost += tr.Cost
	}
	assert.Greater(t, totalCost, 0.0)
}

func TestSimulator_StopOutFilledAtNextOpen(t *testing.T) {
	const days = 160
	const start = 130
	const crash = 135

	dates := businessDays(days)
	strong := wavySeries(contracts.Instrument{ID: "STRONG", Sector: "Tech"}, dates, 100, 0.004, 0.8, 0)
	mid := wavySeries(contracts.Instrument{ID: "MID", Sector: "Energy"}, dates, 80, 0.002, 0.5, 1)
	weak := wavySeries(contracts.Instrument{ID: "WEAK", Sector: "Health"}, dates, 60, -0.001, 0.4, 2)

	entry := strong.Bars[start].Close
	for i := crash; i < days; i++ {
		c := entry * 0.85
		strong.Bars[i] = contracts.PriceBar{Date: dates[i], Open: c, High: c, Low: c, Close: c}
	}
	fillPrice := entry * 0.80
	strong.Bars[crash+1].Open = fillPrice

	m, err := contracts.NewPriceMatrix([]contracts.PriceSeries{strong, mid, weak})
	require.NoError(t, err)

	cfg := strategyconfig.Default()
	cfg.Ranking.Weights = strategyconfig.RankingWeights{Momentum: 1}
	cfg.Portfolio.VolatilityCapPct = 0
	cfg.Rebalance.Frequency = "@every 8760h" // only the first step rebalances

	sim, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(Input{
		Prices:   m,
		Universe: contracts.NewUniverse(m.Instruments()),
		Start:    dates[start],
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.RebalanceCount)

	var bought bool
	var stops []contracts.TradeEvent
	for _, tr := range res.Trades {
		if tr.InstrumentID != "STRONG" {
			continue
		}
		if tr.Action == contracts.ActionBuy {
			bought = true
			assert.Equal(t, dates[start], tr.Date)
			assert.InDelta(t, entry, tr.Price, 1e-9)
		}
		if tr.Reason == contracts.ReasonStopLoss {
			stops = append(stops, tr)
		}
	}
	require.True(t, bought)
	require.Len(t, stops, 1)
	assert.Equal(t, contracts.ActionSell, stops[0].Action)
	assert.Equal(t, dates[crash+1], stops[0].Date, "flagged on the crash close, filled next bar")
	assert.InDelta(t, fillPrice, stops[0].Price, 1e-9)

	for _, pos := range res.FinalPositions {
		assert.NotEqual(t, "STRONG", pos.Instrument.ID)
	}
}

func TestSimulator_UniverseSnapshots(t *testing.T) {
	in := syntheticInput(t, 200, 130)
	// only A and B are members on the first step
	in.Universe.Snapshots = map[string][]string{
		contracts.DateKey(in.Start): {"A", "B"},
	}

	cfg := strategyconfig.Default()
	cfg.Portfolio.VolatilityCapPct = 0
	cfg.Rebalance.Frequency = "@every 8760h"
	sim, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(in)
	require.NoError(t, err)
	for _, tr := range res.Trades {
		if tr.Action == contracts.ActionBuy {
			assert.Contains(t, []string{"A", "B"}, tr.InstrumentID)
		}
	}
}

func TestSimulator_TrimPaths(t *testing.T) {
	const days = 360
	const start = 130

	dates := businessDays(days)
	riser := wavySeries(contracts.Instrument{ID: "RISER", Sector: "Tech"}, dates, 50, 0.004, 0.5, 0)
	m, err := contracts.NewPriceMatrix([]contracts.PriceSeries{riser})
	require.NoError(t, err)

	cfg := strategyconfig.Default()
	cfg.Portfolio.TopN = 1
	cfg.Portfolio.VolatilityCapPct = 0
	cfg.Rebalance.Frequency = "@every 8760h"

	sim, err := NewSimulator(cfg, logger.Nop())
	require.NoError(t, err)
	res, err := sim.Run(Input{Prices: m, Universe: contracts.NewUniverse(m.Instruments()), Start: dates[start]})
	require.NoError(t, err)
	require.Equal(t, 1, res.RebalanceCount)

	var hardCaps, takeProfits []contracts.TradeEvent
	for _, tr := range res.Trades {
		switch tr.Reason {
		case contracts.ReasonHardCap:
			hardCaps = append(hardCaps, tr)
		case contracts.ReasonTakeProfit:
			takeProfits = append(takeProfits, tr)
		}
	}
	require.NotEmpty(t, hardCaps)
	require.NotEmpty(t, takeProfits)
	assert.True(t, hardCaps[0].Date.Before(takeProfits[0].Date), "drift hits the hard cap before the profit target")

	entry := res.Trades[0]
	require.Equal(t, contracts.ActionBuy, entry.Action)
	for _, tr := range append(hardCaps, takeProfits...) {
		assert.Equal(t, contracts.ActionTrim, tr.Action)
		assert.Less(t, tr.WeightDelta, 0.0)
		assert.Greater(t, tr.Value, 0.0)
	}
	assert.GreaterOrEqual(t, takeProfits[0].Price/entry.Price-1, cfg.Risk.TakeProfitPct)

	byDate := make(map[string]contracts.PerformanceRecord, len(res.EquityCurve))
	for _, rec := range res.EquityCurve {
		invested := 1 - rec.Cash
		assert.LessOrEqual(t, invested, cfg.Risk.HardCapWeight+1e-9, contracts.DateKey(rec.Date))
		byDate[contracts.DateKey(rec.Date)] = rec
	}
	for _, tr := range hardCaps {
		rec := byDate[contracts.DateKey(tr.Date)]
		assert.InDelta(t, cfg.Risk.HardCapWeight, 1-rec.Cash, 1e-9)
	}
	for _, tr := range takeProfits {
		rec := byDate[contracts.DateKey(tr.Date)]
		assert.InDelta(t, cfg.Risk.MaxWeight, 1-rec.Cash, 1e-9, "trimmed back to the target weight")
	}

	require.Len(t, res.FinalPositions, 1)
	final := res.FinalPositions[0]
	assert.Equal(t, contracts.PositionTrimmed, final.State)
	assert.InDelta(t, cfg.Risk.MaxWeight, final.Weight, 0.01)
}

func TestSimulator_RegimeDampener(t *testing.T) {
	const days = 260
	const start = 210

	series, universe := syntheticUniverse(days)
	dates := businessDays(days)

	// 150일 상승 후 하루 1%씩 하락: 시작일에 200일선 아래
	bench := contracts.PriceSeries{Instrument: contracts.Instrument{ID: "^KS11"}}
	price := 100.0
	for i, d := range dates {
		if i < 150 {
			price *= 1.002
		} else {
			price *= 0.99
		}
		bench.Bars = append(bench.Bars, contracts.PriceBar{Date: d, Open: price, High: price, Low: price, Close: price})
	}
	m, err := contracts.NewPriceMatrix(append(series, bench))
	require.NoError(t, err)
	in := Input{Prices: m, Universe: universe, Start: dates[start]}

	base := strategyconfig.Default()
	base.Portfolio.VolatilityCapPct = 0
	base.Rebalance.Frequency = "@every 8760h"

	dampened := base.Clone()
	dampened.Regime.Enabled = true
	dampened.Regime.BenchmarkID = "^KS11"
	dampened.Regime.ReduceFraction = 0.5

	simBase, err := NewSimulator(base, logger.Nop())
	require.NoError(t, err)
	simDamp, err := NewSimulator(dampened, logger.Nop())
	require.NoError(t, err)

	rBase, err := simBase.Run(in)
	require.NoError(t, err)
	rDamp, err := simDamp.Run(in)
	require.NoError(t, err)

	assert.Equal(t, 0, rBase.RegimeDampened)
	assert.Equal(t, 1, rDamp.RegimeDampened)

	investedBase := 1 - rBase.EquityCurve[0].Cash
	investedDamp := 1 - rDamp.EquityCurve[0].Cash
	require.Greater(t, investedBase, 0.0)
	assert.InDelta(t, investedBase*0.5, investedDamp, 1e-9)

	for _, tr := range rDamp.Trades {
		assert.NotEqual(t, "^KS11", tr.InstrumentID, "benchmark is never traded")
	}
}
