package marketdata

import (
	"context"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

// CachedProvider caches another provider's series per (instrument, start, end).
// A disabled cache makes it a pass-through.
type CachedProvider struct {
	next   contracts.MarketDataProvider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next with the daily TTL
func NewCachedProvider(next contracts.MarketDataProvider, cache *redis.Cache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    redis.TTLDaily,
		logger: log.WithField("module", "history_cache"),
	}
}

// GetHistory serves from the cache when possible. Cache failures only degrade to a direct fetch.
func (c *CachedProvider) GetHistory(ctx context.Context, instrument contracts.Instrument, start, end time.Time) (contracts.PriceSeries, error) {
	key := redis.HistoryKey(instrument.ID, start, end)

	var cached contracts.PriceSeries
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("instrument", instrument.ID).Warn("History cache read failed")
	}
	if hit {
		cached.Instrument = instrument
		return cached, nil
	}

	series, err := c.next.GetHistory(ctx, instrument, start, end)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	// 빈 결과는 캐시하지 않음 (상장 직후 종목)
	if len(series.Bars) > 0 {
		if err := c.cache.Set(ctx, key, series, c.ttl); err != nil {
			c.logger.WithError(err).WithField("instrument", instrument.ID).Warn("History cache write failed")
		}
	}
	return series, nil
}
