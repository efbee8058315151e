package backtest

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// GridResult is the outcome of one grid variant
type GridResult struct {
	StrategyID string                    `json:"strategy_id"`
	ConfigHash string                    `json:"config_hash,omitempty"`
	Result     *contracts.BacktestResult `json:"result,omitempty"`
	Err        error                     `json:"-"`
	Error      string                    `json:"error,omitempty"`
}

// RunGrid backtests every config over the same input, at most workers at a time.
// Each run owns its own state; the shared input is read-only.
// A failing variant is reported in its GridResult; only ctx cancellation aborts the grid.
// Results are ordered by Sharpe, then CAGR (both descending), then strategy ID; failures last.
func RunGrid(ctx context.Context, configs []*strategyconfig.Config, in Input, workers int, log *logger.Logger) ([]GridResult, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]GridResult, len(configs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = GridResult{StrategyID: cfg.Meta.StrategyID}
			sim, err := NewSimulator(cfg, log)
			if err != nil {
				results[i].Err = err
				results[i].Error = err.Error()
				return nil
			}
			results[i].ConfigHash = sim.ConfigHash()

			res, err := sim.Run(in)
			if err != nil {
				results[i].Err = err
				results[i].Error = err.Error()
				return nil
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortGrid(results)

	log.WithFields(map[string]interface{}{
		"variants": len(configs),
		"workers":  workers,
	}).Info("Grid search completed")

	return results, nil
}

// SortGrid orders results best first
func SortGrid(results []GridResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Result, results[j].Result
		if (a == nil) != (b == nil) {
			return a != nil
		}
		if a != nil {
			if a.Metrics.Sharpe != b.Metrics.Sharpe {
				return a.Metrics.Sharpe > b.Metrics.Sharpe
			}
			if a.Metrics.CAGR != b.Metrics.CAGR {
				return a.Metrics.CAGR > b.Metrics.CAGR
			}
		}
		if results[i].StrategyID != results[j].StrategyID {
			return results[i].StrategyID < results[j].StrategyID
		}
		return results[i].ConfigHash < results[j].ConfigHash
	})
}
