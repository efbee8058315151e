// Package engine wires the providers, the strategy components and the
// simulator into the operations the CLI, the API and the scheduler call.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-momentum/internal/backtest"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/marketdata"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/internal/rebalance"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Engine coordinates data loading, simulation and recommendation for one strategy
// ⭐ SSOT: 실행 조율은 여기서만
type Engine struct {
	cfg      *strategyconfig.Config
	universe contracts.UniverseProvider
	loader   *marketdata.Loader
	quality  *marketdata.QualityGate
	metrics  *metrics.Registry
	now      func() time.Time
	logger   *logger.Logger
}

// Dataset is the materialized input of a run
type Dataset struct {
	Input   backtest.Input
	Load    *marketdata.LoadResult
	Quality *marketdata.QualitySnapshot // nil without a quality gate
}

// New validates the config and creates an engine
func New(cfg *strategyconfig.Config, universe contracts.UniverseProvider, loader *marketdata.Loader, log *logger.Logger) (*Engine, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	for _, w := range strategyconfig.Warn(cfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &Engine{
		cfg:      cfg.Clone(),
		universe: universe,
		loader:   loader,
		now:      time.Now,
		logger:   log.WithField("module", "engine"),
	}, nil
}

// WithMetrics attaches a metrics registry
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	e.metrics = m
	return e
}

// WithQualityGate rejects loads that fail the gate before any signal is computed
func (e *Engine) WithQualityGate(g *marketdata.QualityGate) *Engine {
	e.quality = g
	return e
}

// Config returns a copy of the strategy config
func (e *Engine) Config() *strategyconfig.Config {
	return e.cfg.Clone()
}

// Prepare loads prices for [start, end] plus the signal warm-up and
// materializes the universe of every rebalance date.
// window is the number of closes the signals need before start.
// A regime benchmark is loaded into the matrix but never joins the universe.
func (e *Engine) Prepare(ctx context.Context, start, end time.Time, window int, freq rebalance.Frequency) (*Dataset, error) {
	benchmarks, n := regimeNeeds(e.cfg)
	return e.prepare(ctx, start, end, max(window, n), freq, benchmarks)
}

func (e *Engine) prepare(ctx context.Context, start, end time.Time, window int, freq rebalance.Frequency, benchmarks []string) (*Dataset, error) {
	start, end = contracts.Day(start), contracts.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", contracts.DateKey(end), contracts.DateKey(start))
	}

	// 1. Candidate members over an approximate weekday calendar
	listed := make(map[string]contracts.Instrument)
	for _, d := range append(rebalance.Dates(freq, weekdays(start, end)), start, end) {
		insts, err := e.universe.List(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("list universe %s: %w", contracts.DateKey(d), err)
		}
		for _, inst := range insts {
			listed[inst.ID] = inst
		}
	}
	if len(listed) == 0 {
		return nil, fmt.Errorf("%w: empty universe between %s and %s",
			contracts.ErrNoMarketData, contracts.DateKey(start), contracts.DateKey(end))
	}

	instruments := make([]contracts.Instrument, 0, len(listed))
	for _, inst := range listed {
		instruments = append(instruments, inst)
	}
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].ID < instruments[j].ID })

	// 2. Prices with warm-up
	toLoad := instruments
	for _, id := range benchmarks {
		if _, member := listed[id]; !member {
			toLoad = append(toLoad, contracts.Instrument{ID: id})
		}
	}
	load, err := e.loader.Load(ctx, toLoad, warmupStart(start, window), end)
	if err != nil {
		return nil, err
	}
	for _, id := range benchmarks {
		if _, ok := load.Matrix.Row(id); !ok {
			e.logger.WithField("benchmark", id).Warn("Regime benchmark has no prices; dampener inactive")
		}
	}
	var snapshot *marketdata.QualitySnapshot
	if e.quality != nil {
		snapshot = e.quality.Check(load)
		e.logger.WithFields(map[string]interface{}{
			"score":    snapshot.QualityScore,
			"coverage": snapshot.Coverage,
			"passed":   snapshot.Passed,
		}).Info("Market data quality checked")
		if err := snapshot.Err(); err != nil {
			return nil, err
		}
	}

	// 3. Membership snapshots on the real trading calendar
	universe := contracts.NewUniverse(instruments)
	universe.Snapshots = make(map[string][]string)
	var calendar []time.Time
	for _, d := range load.Matrix.Dates() {
		if !d.Before(start) && !d.After(end) {
			calendar = append(calendar, d)
		}
	}
	for _, d := range rebalance.Dates(freq, calendar) {
		insts, err := e.universe.List(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("list universe %s: %w", contracts.DateKey(d), err)
		}
		ids := make([]string, len(insts))
		for i, inst := range insts {
			ids[i] = inst.ID
		}
		universe.Snapshots[contracts.DateKey(d)] = ids
	}

	if fp, ok := e.universe.(contracts.FundamentalsProvider); ok {
		fundamentals, err := fp.Fundamentals(ctx)
		if err != nil {
			return nil, fmt.Errorf("load fundamentals: %w", err)
		}
		universe.Fundamentals = fundamentals
	}

	e.logger.WithFields(map[string]interface{}{
		"instruments": len(instruments),
		"snapshots":   len(universe.Snapshots),
		"failed":      len(load.Failures),
	}).Info("Dataset prepared")

	return &Dataset{
		Input:   backtest.Input{Prices: load.Matrix, Universe: universe, Start: start, End: end},
		Load:    load,
		Quality: snapshot,
	}, nil
}

// Backtest runs the engine's strategy over [start, end]
func (e *Engine) Backtest(ctx context.Context, start, end time.Time) (*contracts.BacktestResult, error) {
	began := time.Now()

	sim, err := backtest.NewSimulator(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	freq, err := rebalance.ParseFrequency(e.cfg.Rebalance.Frequency)
	if err != nil {
		return nil, err
	}

	ds, err := e.Prepare(ctx, start, end, e.cfg.Signals.WindowLength(), freq)
	if err != nil {
		e.metrics.ObserveBacktest(nil, time.Since(began), err)
		return nil, err
	}

	result, err := sim.Run(ds.Input)
	e.metrics.ObserveBacktest(result, time.Since(began), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Grid backtests every config over one shared dataset.
// The dataset covers the longest warm-up and the union of rebalance dates.
func (e *Engine) Grid(ctx context.Context, configs []*strategyconfig.Config, start, end time.Time, workers int) ([]backtest.GridResult, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("grid needs at least one config")
	}

	window := 0
	for _, cfg := range configs {
		if n := cfg.Signals.WindowLength(); n > window {
			window = n
		}
	}
	benchmarks, n := regimeNeeds(configs...)
	// 일별 스냅샷이면 모든 변형의 리밸런스 날짜를 포함
	ds, err := e.prepare(ctx, start, end, max(window, n), rebalance.MustParseFrequency("D"), benchmarks)
	if err != nil {
		return nil, err
	}

	results, err := backtest.RunGrid(ctx, configs, ds.Input, workers, e.logger)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		e.metrics.ObserveBacktest(r.Result, 0, r.Err)
	}
	return results, nil
}

// regimeNeeds returns the distinct regime benchmarks of the configs and the
// longest benchmark window they read
func regimeNeeds(cfgs ...*strategyconfig.Config) ([]string, int) {
	var ids []string
	seen := make(map[string]struct{})
	window := 0
	for _, cfg := range cfgs {
		if !cfg.Regime.Enabled {
			continue
		}
		if n := cfg.Regime.WindowLength(cfg.Signals); n > window {
			window = n
		}
		if _, ok := seen[cfg.Regime.BenchmarkID]; ok {
			continue
		}
		seen[cfg.Regime.BenchmarkID] = struct{}{}
		ids = append(ids, cfg.Regime.BenchmarkID)
	}
	sort.Strings(ids)
	return ids, window
}

// warmupStart pads the window (in trading days) with weekends and holidays
func warmupStart(start time.Time, window int) time.Time {
	return start.AddDate(0, 0, -(window*7/5 + 21))
}

func weekdays(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}
