package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// FailureObserver is notified of every per-instrument fetch failure
type FailureObserver interface {
	ObserveProviderFailure(instrument string, err error)
}

// Failure is one instrument the loader could not use
type Failure struct {
	InstrumentID string `json:"instrument_id"`
	Error        string `json:"error"`
	err          error
}

// Err returns the provider error
func (f Failure) Err() error { return f.err }

// LoadResult is the materialized market data of a run
type LoadResult struct {
	Matrix    *contracts.PriceMatrix
	Series    []contracts.PriceSeries // ordered by instrument ID
	Failures  []Failure
	Requested int
	Coverage  float64 // instruments with at least one bar / requested
}

// Loader fetches every instrument of a universe in parallel and aligns the result.
// ⭐ SSOT: 시세 로딩/정렬은 여기서만
type Loader struct {
	provider contracts.MarketDataProvider
	workers  int
	observer FailureObserver
	logger   *logger.Logger
}

// NewLoader creates a loader with at most workers concurrent fetches
func NewLoader(provider contracts.MarketDataProvider, workers int, log *logger.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		provider: provider,
		workers:  workers,
		logger:   log.WithField("module", "loader"),
	}
}

// WithObserver attaches a failure observer (metrics)
func (l *Loader) WithObserver(o FailureObserver) *Loader {
	l.observer = o
	return l
}

// Load fetches [start, end] for every instrument.
// A failed instrument is recorded and skipped; only cancellation aborts.
// Returns ErrNoMarketData when no instrument produced a bar.
func (l *Loader) Load(ctx context.Context, instruments []contracts.Instrument, start, end time.Time) (*LoadResult, error) {
	l.logger.WithFields(map[string]interface{}{
		"instruments": len(instruments),
		"from":        contracts.DateKey(start),
		"to":          contracts.DateKey(end),
		"workers":     l.workers,
	}).Info("Loading market data")

	series := make([]contracts.PriceSeries, len(instruments))
	errs := make([]error, len(instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, inst := range instruments {
		i, inst := i, inst
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := l.provider.GetHistory(gctx, inst, start, end)
			if err == nil {
				s.Instrument = inst
				err = s.Validate()
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs[i] = err
				return nil
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}

	result := &LoadResult{Requested: len(instruments)}
	withBars := 0
	for i, inst := range instruments {
		if errs[i] != nil {
			l.logger.WithError(errs[i]).WithField("instrument", inst.ID).Warn("Market data fetch failed")
			if l.observer != nil {
				l.observer.ObserveProviderFailure(inst.ID, errs[i])
			}
			result.Failures = append(result.Failures, Failure{InstrumentID: inst.ID, Error: errs[i].Error(), err: errs[i]})
			continue
		}
		if len(series[i].Bars) > 0 {
			withBars++
		}
		result.Series = append(result.Series, series[i])
	}

	if withBars == 0 {
		return nil, fmt.Errorf("%w: %s..%s (%d instruments, %d failed)",
			contracts.ErrNoMarketData, contracts.DateKey(start), contracts.DateKey(end), len(instruments), len(result.Failures))
	}

	sort.Slice(result.Series, func(i, j int) bool { return result.Series[i].Instrument.ID < result.Series[j].Instrument.ID })

	matrix, err := contracts.NewPriceMatrix(result.Series)
	if err != nil {
		return nil, fmt.Errorf("align market data: %w", err)
	}
	result.Matrix = matrix
	result.Coverage = float64(withBars) / float64(len(instruments))

	rows, cols := matrix.Dims()
	l.logger.WithFields(map[string]interface{}{
		"loaded":   len(result.Series),
		"failed":   len(result.Failures),
		"coverage": result.Coverage,
		"rows":     rows,
		"dates":    cols,
	}).Info("Market data loaded")

	return result, nil
}

// IsNoMarketData reports whether err is a total provider failure
func IsNoMarketData(err error) bool {
	return errors.Is(err, contracts.ErrNoMarketData)
}
