package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/portfolio"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/internal/universe"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

type brokenHoldings struct{}

func (brokenHoldings) CurrentHoldings(context.Context) ([]contracts.Holding, error) {
	return nil, errors.New("broker offline")
}

func TestService_RefreshAndLatest(t *testing.T) {
	f := newFixture(200)
	e := f.engine(t, strategyconfig.Default(), universe.NewStaticProvider(f.instruments))
	e.now = func() time.Time { return f.dates[len(f.dates)-1] }

	svc := NewService(e, portfolio.StaticHoldings{}, redis.NewCache(redis.Disabled(), "test"), logger.Nop())

	_, err := svc.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoRecommendation)

	rec, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.dates[len(f.dates)-1], rec.Date)

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Same(t, rec, latest)
	assert.Equal(t, "momentum_v1", svc.StrategyID())
}

func TestService_RefreshHoldingsFailure(t *testing.T) {
	f := newFixture(200)
	e := f.engine(t, strategyconfig.Default(), universe.NewStaticProvider(f.instruments))

	svc := NewService(e, brokenHoldings{}, redis.NewCache(redis.Disabled(), "test"), logger.Nop())
	_, err := svc.Refresh(context.Background())
	assert.ErrorContains(t, err, "broker offline")
}
