package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

// ErrNoRecommendation is returned by Latest before the first refresh
var ErrNoRecommendation = errors.New("no recommendation computed yet")

// HoldingsSource supplies the live holdings a recommendation is compared against
type HoldingsSource interface {
	CurrentHoldings(ctx context.Context) ([]contracts.Holding, error)
}

// Service keeps the latest recommendation for the API and the refresh job.
// The last result is held in memory and mirrored to the Redis cache.
type Service struct {
	engine   *Engine
	holdings HoldingsSource
	cache    *redis.Cache
	logger   *logger.Logger

	mu     sync.RWMutex
	latest *contracts.RecommendedPortfolio
}

// NewService creates a recommendation service. holdings may be nil (all cash).
func NewService(engine *Engine, holdings HoldingsSource, cache *redis.Cache, log *logger.Logger) *Service {
	return &Service{
		engine:   engine,
		holdings: holdings,
		cache:    cache,
		logger:   log.WithField("module", "recommendation"),
	}
}

func (s *Service) cacheKey() string {
	return redis.RecommendationKey(s.engine.cfg.Meta.StrategyID)
}

// Refresh recomputes the recommendation as of now
func (s *Service) Refresh(ctx context.Context) (*contracts.RecommendedPortfolio, error) {
	var holdings []contracts.Holding
	if s.holdings != nil {
		var err error
		holdings, err = s.holdings.CurrentHoldings(ctx)
		if err != nil {
			return nil, fmt.Errorf("load holdings: %w", err)
		}
	}

	rec, err := s.engine.Recommend(ctx, s.engine.now(), holdings)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = rec
	s.mu.Unlock()

	if err := s.cache.Set(ctx, s.cacheKey(), rec, redis.TTLDaily*7); err != nil {
		s.logger.WithError(err).Warn("Failed to cache recommendation")
	}
	return rec, nil
}

// Latest returns the last computed recommendation, falling back to the cache
func (s *Service) Latest(ctx context.Context) (*contracts.RecommendedPortfolio, error) {
	s.mu.RLock()
	rec := s.latest
	s.mu.RUnlock()
	if rec != nil {
		return rec, nil
	}

	var cached contracts.RecommendedPortfolio
	found, err := s.cache.Get(ctx, s.cacheKey(), &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read cached recommendation")
	}
	if !found {
		return nil, ErrNoRecommendation
	}

	s.mu.Lock()
	if s.latest == nil {
		s.latest = &cached
	}
	rec = s.latest
	s.mu.Unlock()
	return rec, nil
}

// Backtest runs the strategy over [from, to]
func (s *Service) Backtest(ctx context.Context, from, to time.Time) (*contracts.BacktestResult, error) {
	return s.engine.Backtest(ctx, from, to)
}

// StrategyID returns the served strategy
func (s *Service) StrategyID() string {
	return s.engine.cfg.Meta.StrategyID
}
