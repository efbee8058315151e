package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func bars(closes ...float64) []contracts.PriceBar {
	out := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = contracts.PriceBar{Date: day(i + 1), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestMemoryProvider_GetHistory(t *testing.T) {
	a := contracts.Instrument{ID: "A", Sector: "Tech"}
	p := NewMemoryProvider(contracts.PriceSeries{Instrument: a, Bars: bars(10, 11, 12, 13, 14)})

	tests := []struct {
		name    string
		inst    contracts.Instrument
		from    time.Time
		to      time.Time
		want    int
		wantErr error
	}{
		{"full range", a, day(1), day(5), 5, nil},
		{"inner range", a, day(2), day(3), 2, nil},
		{"outside range", a, day(10), day(12), 0, nil},
		{"unknown", contracts.Instrument{ID: "Z"}, day(1), day(5), 0, contracts.ErrInstrumentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := p.GetHistory(context.Background(), tt.inst, tt.from, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Bars, tt.want)
		})
	}
}

type countingObserver struct{ n int32 }

func (c *countingObserver) ObserveProviderFailure(string, error) { atomic.AddInt32(&c.n, 1) }

func TestLoader_PartialFailure(t *testing.T) {
	a := contracts.Instrument{ID: "A", Sector: "Tech"}
	b := contracts.Instrument{ID: "B", Sector: "Energy"}
	c := contracts.Instrument{ID: "C", Sector: "Energy"}

	p := NewMemoryProvider(
		contracts.PriceSeries{Instrument: a, Bars: bars(10, 11, 12)},
		contracts.PriceSeries{Instrument: c, Bars: bars(5, 5.5, 6)},
	)
	p.Fail("B", errors.New("upstream timeout"))

	obs := &countingObserver{}
	res, err := NewLoader(p, 2, logger.Nop()).WithObserver(obs).Load(context.Background(), []contracts.Instrument{c, b, a}, day(1), day(3))
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].InstrumentID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&obs.n))
	assert.InDelta(t, 2.0/3.0, res.Coverage, 1e-9)

	rows, cols := res.Matrix.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, "A", res.Series[0].Instrument.ID)
}

func TestLoader_NoMarketData(t *testing.T) {
	a := contracts.Instrument{ID: "A"}
	p := NewMemoryProvider(contracts.PriceSeries{Instrument: a, Bars: bars(10, 11)})
	p.Fail("B", errors.New("down"))

	_, err := NewLoader(p, 4, logger.Nop()).Load(context.Background(),
		[]contracts.Instrument{a, {ID: "B"}}, day(20), day(25))
	assert.True(t, IsNoMarketData(err))
}

func TestLoader_InvalidSeriesIsPerInstrument(t *testing.T) {
	a := contracts.Instrument{ID: "A"}
	b := contracts.Instrument{ID: "B"}
	p := NewMemoryProvider(
		contracts.PriceSeries{Instrument: a, Bars: bars(10, 11)},
		contracts.PriceSeries{Instrument: b, Bars: bars(10, -1)},
	)

	res, err := NewLoader(p, 1, logger.Nop()).Load(context.Background(), []contracts.Instrument{a, b}, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err(), contracts.ErrInvalidSeries)
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := contracts.Instrument{ID: "A"}
	_, err := NewLoader(NewMemoryProvider(contracts.PriceSeries{Instrument: a, Bars: bars(1)}), 1, logger.Nop()).
		Load(ctx, []contracts.Instrument{a}, day(1), day(1))
	assert.ErrorIs(t, err, context.Canceled)
}

const chartBody = `{"chart":{"result":[{"timestamp":[%d,%d,%d],
"indicators":{"quote":[{"open":[10,null,12],"high":[10.5,11.5,12.5],"low":[9.5,10.5,11.5],
"close":[10.2,null,12.1],"volume":[1000,2000,null]}]}}],"error":null}}`

func TestChartProvider_GetHistory(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, chartBody, day(4).Unix()+14*3600, day(5).Unix()+14*3600, day(6).Unix()+14*3600)
	}))
	defer srv.Close()

	client := httputil.New(logger.Nop()).DisableRetry()
	p := NewChartProvider(client, srv.URL, logger.Nop())

	s, err := p.GetHistory(context.Background(), contracts.Instrument{ID: "005930.KS"}, day(1), day(31))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/005930.KS", gotPath)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, day(4), s.Bars[0].Date)
	assert.Equal(t, 10.2, s.Bars[0].Close)
	assert.Equal(t, int64(1000), s.Bars[0].Volume)
	assert.Equal(t, day(6), s.Bars[1].Date)
	assert.Equal(t, int64(0), s.Bars[1].Volume)
	assert.NoError(t, s.Validate())
}

func TestChartProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{}`, contracts.ErrInstrumentNotFound},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, contracts.ErrInstrumentNotFound},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"invalid range"}}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewChartProvider(httputil.New(logger.Nop()).DisableRetry(), srv.URL, logger.Nop())
			_, err := p.GetHistory(context.Background(), contracts.Instrument{ID: "X"}, day(1), day(2))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

type countingProvider struct {
	calls int32
	next  contracts.MarketDataProvider
}

func (c *countingProvider) GetHistory(ctx context.Context, inst contracts.Instrument, start, end time.Time) (contracts.PriceSeries, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.next.GetHistory(ctx, inst, start, end)
}

func TestCachedProvider_DisabledPassThrough(t *testing.T) {
	a := contracts.Instrument{ID: "A"}
	inner := &countingProvider{next: NewMemoryProvider(contracts.PriceSeries{Instrument: a, Bars: bars(1, 2, 3)})}
	p := NewCachedProvider(inner, redis.NewCache(redis.Disabled(), "test"), logger.Nop())

	for i := 0; i < 2; i++ {
		s, err := p.GetHistory(context.Background(), a, day(1), day(3))
		require.NoError(t, err)
		assert.Len(t, s.Bars, 3)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}
