package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

func gridConfigs() []*strategyconfig.Config {
	weekly := strategyconfig.Default()
	weekly.Meta.StrategyID = "weekly"

	monthly := strategyconfig.Default()
	monthly.Meta.StrategyID = "monthly"
	monthly.Rebalance.Frequency = "monthly"

	kelly := strategyconfig.Default()
	kelly.Meta.StrategyID = "kelly"
	kelly.Portfolio.Weighting = strategyconfig.WeightingKelly

	broken := strategyconfig.Default()
	broken.Meta.StrategyID = "broken"
	broken.Risk.StopLossPct = 0.5

	return []*strategyconfig.Config{weekly, monthly, kelly, broken}
}

func TestRunGrid(t *testing.T) {
	in := syntheticInput(t, 220, 130)

	results, err := RunGrid(context.Background(), gridConfigs(), in, 3, logger.Nop())
	require.NoError(t, err)
	require.Len(t, results, 4)

	// failure sorts last and carries its error
	last := results[3]
	assert.Equal(t, "broken", last.StrategyID)
	assert.Error(t, last.Err)
	assert.Nil(t, last.Result)

	for i := 0; i < 2; i++ {
		assert.GreaterOrEqual(t, results[i].Result.Metrics.Sharpe, results[i+1].Result.Metrics.Sharpe)
	}

	// each variant matches a standalone run
	for _, r := range results[:3] {
		var cfg *strategyconfig.Config
		for _, c := range gridConfigs() {
			if c.Meta.StrategyID == r.StrategyID {
				cfg = c
			}
		}
		sim, err := NewSimulator(cfg, logger.Nop())
		require.NoError(t, err)
		solo, err := sim.Run(in)
		require.NoError(t, err)
		assert.Equal(t, solo, r.Result, r.StrategyID)
	}
}

func TestRunGrid_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunGrid(ctx, gridConfigs(), syntheticInput(t, 150, 130), 2, logger.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortGrid_TieBreaks(t *testing.T) {
	mk := func(id string, sharpe, cagr float64) GridResult {
		return GridResult{StrategyID: id, Result: &contracts.BacktestResult{
			Metrics: contracts.Metrics{Sharpe: sharpe, CAGR: cagr},
		}}
	}
	results := []GridResult{
		{StrategyID: "failed"},
		mk("b", 1.0, 0.10),
		mk("a", 1.0, 0.10),
		mk("c", 1.0, 0.20),
		mk("d", 2.0, 0.01),
	}

	SortGrid(results)

	var order []string
	for _, r := range results {
		order = append(order, r.StrategyID)
	}
	assert.Equal(t, []string{"d", "c", "a", "b", "failed"}, order)
}
