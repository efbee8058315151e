package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/engine"
	"github.com/wonny/aegis-momentum/internal/marketdata"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/internal/universe"
	"github.com/wonny/aegis-momentum/pkg/config"
	"github.com/wonny/aegis-momentum/pkg/database"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

const dateLayout = "2006-01-02"

// app holds the process-wide dependencies shared by every command.
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB // nil when DATABASE_URL is unset
	redis   *redis.Client
	metrics *metrics.Registry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if universeFile != "" {
		cfg.UniverseFile = universeFile
	}
	if strategyFile != "" {
		cfg.StrategyConfigPath = strategyFile
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Debug("DATABASE_URL not set, Postgres providers disabled")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// 캐시는 선택 사항
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}
	a.redis = rc

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
}

func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, "momentum")
}

// strategy loads the strategy file, or the built-in defaults when none is set
func (a *app) strategy() (*strategyconfig.Config, error) {
	if a.cfg.StrategyConfigPath == "" {
		a.log.Info("No strategy file given, using built-in defaults")
		return strategyconfig.Default(), nil
	}
	cfg, err := resolveStrategy(a.cfg.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	return cfg, nil
}

// universe prefers the universe file and falls back to data.stocks in Postgres
func (a *app) universe() (contracts.UniverseProvider, error) {
	if a.cfg.UniverseFile != "" {
		p, err := universe.LoadFile(a.cfg.UniverseFile)
		if err == nil {
			return p, nil
		}
		if a.db == nil {
			return nil, fmt.Errorf("load universe: %w", err)
		}
		a.log.WithError(err).Warn("Universe file unusable, reading universe from Postgres")
	}
	if a.db == nil {
		return nil, fmt.Errorf("no universe: set UNIVERSE_FILE or DATABASE_URL")
	}
	return universe.NewPostgresProvider(a.db.Pool, universe.Filter{MinListingDays: 180, ExcludeSPAC: true}), nil
}

// provider builds the configured market data source wrapped in the Redis cache
func (a *app) provider() (contracts.MarketDataProvider, error) {
	var source contracts.MarketDataProvider
	switch a.cfg.MarketData.Source {
	case "postgres":
		if a.db == nil {
			return nil, database.ErrNotConfigured
		}
		source = marketdata.NewPostgresProvider(a.db.Pool)
	default:
		client := httputil.New(a.log).
			WithTimeout(a.cfg.MarketData.Timeout).
			WithRateLimit(a.cfg.MarketData.RequestsPerSec, a.cfg.MarketData.Burst)
		source = marketdata.NewChartProvider(client, a.cfg.MarketData.BaseURL, a.log)
	}
	return marketdata.NewCachedProvider(source, a.cache(), a.log), nil
}

// engine wires strategy, universe and market data into an Engine
func (a *app) engine(strategy *strategyconfig.Config) (*engine.Engine, error) {
	uni, err := a.universe()
	if err != nil {
		return nil, err
	}
	provider, err := a.provider()
	if err != nil {
		return nil, err
	}

	loader := marketdata.NewLoader(provider, a.cfg.MarketData.FetchWorkers, a.log).WithObserver(a.metrics)
	eng, err := engine.New(strategy, uni, loader, a.log)
	if err != nil {
		return nil, err
	}
	gate := marketdata.NewQualityGate(marketdata.QualityConfig{
		MinInstrumentCoverage: a.cfg.MarketData.MinCoverage,
		MinLatestCoverage:     a.cfg.MarketData.MinLatestCoverage,
	})
	return eng.WithMetrics(a.metrics).WithQualityGate(gate), nil
}

// strategyOverrides are CLI flags applied once over the loaded strategy
type strategyOverrides struct {
	capital       float64
	frequency     string
	topN          int
	weighting     string
	commissionBps float64
	slippageBps   float64
}

func (o *strategyOverrides) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.capital, "capital", 0, "initial capital")
	cmd.Flags().StringVar(&o.frequency, "frequency", "", "rebalance frequency (D, W-FRI, M, ... or cron)")
	cmd.Flags().IntVar(&o.topN, "top-n", 0, "number of holdings")
	cmd.Flags().StringVar(&o.weighting, "weighting", "", "equal | kelly")
	cmd.Flags().Float64Var(&o.commissionBps, "commission-bps", 0, "commission in basis points")
	cmd.Flags().Float64Var(&o.slippageBps, "slippage-bps", 0, "slippage in basis points")
}

// apply copies only the flags the user set, then re-validates
func (o *strategyOverrides) apply(cmd *cobra.Command, cfg *strategyconfig.Config) (*strategyconfig.Config, error) {
	out := cfg.Clone()
	flags := cmd.Flags()
	if flags.Changed("capital") {
		out.Backtest.InitialCapital = o.capital
	}
	if flags.Changed("frequency") {
		out.Rebalance.Frequency = o.frequency
	}
	if flags.Changed("top-n") {
		out.Portfolio.TopN = o.topN
	}
	if flags.Changed("weighting") {
		out.Portfolio.Weighting = o.weighting
	}
	if flags.Changed("commission-bps") {
		out.Backtest.CommissionBps = o.commissionBps
	}
	if flags.Changed("slippage-bps") {
		out.Backtest.SlippageBps = o.slippageBps
	}

	if err := strategyconfig.Validate(out); err != nil {
		return nil, fmt.Errorf("invalid override: %w", err)
	}
	return out, nil
}

// parseDate parses a YYYY-MM-DD flag; an empty value yields def
func parseDate(name, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}
