package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// Registry holds the engine's Prometheus collectors on a private registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	BacktestRuns     *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	Trades           *prometheus.CounterVec
	Ineligible       *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	Recommendations  prometheus.Counter
}

// New creates and registers every collector
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		BacktestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_backtest_runs_total",
				Help: "Backtest runs by outcome",
			},
			[]string{"status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "momentum_run_duration_seconds",
				Help:    "Duration of backtest and recommendation runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),

		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_trades_total",
				Help: "Simulated trade events by action",
			},
			[]string{"action"},
		),

		Ineligible: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_ineligible_instruments_total",
				Help: "Instrument-date pairs excluded from scoring by reason",
			},
			[]string{"reason"},
		),

		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_provider_failures_total",
				Help: "Per-instrument market data fetch failures by kind",
			},
			[]string{"kind"},
		),

		Recommendations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "momentum_recommendations_total",
				Help: "Recommendations computed",
			},
		),
	}

	r.reg.MustRegister(
		r.BacktestRuns,
		r.RunDuration,
		r.Trades,
		r.Ineligible,
		r.ProviderFailures,
		r.Recommendations,
	)
	return r
}

// Handler serves the private registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveBacktest records a finished backtest. A zero elapsed skips the duration
// (grid variants share one timer).
func (r *Registry) ObserveBacktest(result *contracts.BacktestResult, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.BacktestRuns.WithLabelValues("error").Inc()
		return
	}
	r.BacktestRuns.WithLabelValues("ok").Inc()
	if elapsed > 0 {
		r.RunDuration.WithLabelValues("backtest").Observe(elapsed.Seconds())
	}

	for _, ev := range result.Trades {
		r.Trades.WithLabelValues(string(ev.Action)).Inc()
	}
	for reason, n := range result.Ineligible {
		r.Ineligible.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// ObserveRecommendation records a finished recommendation refresh
func (r *Registry) ObserveRecommendation(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Recommendations.Inc()
	r.RunDuration.WithLabelValues("recommendation").Observe(elapsed.Seconds())
}

// ObserveProviderFailure implements marketdata.FailureObserver
func (r *Registry) ObserveProviderFailure(_ string, err error) {
	if r == nil {
		return
	}
	kind := "error"
	switch {
	case errors.Is(err, contracts.ErrInstrumentNotFound):
		kind = "not_found"
	case errors.Is(err, contracts.ErrInvalidSeries):
		kind = "invalid_series"
	}
	r.ProviderFailures.WithLabelValues(kind).Inc()
}
