package signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// wavy is an upward drift with a deterministic oscillation
func wavy(n int, base, drift, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base*(1+drift*float64(i)) + amp*math.Sin(float64(i))
	}
	return out
}

func TestMomentum_Scenario(t *testing.T) {
	closes := flat(127, 100)
	closes[126] = 160
	closes[126-21] = 160 / 1.15
	closes[126-63] = 160 / 1.35

	score, rets, ok := Momentum(closes, []int{21, 63, 126}, []float64{0.3, 0.4, 0.3})
	require.True(t, ok)
	assert.InDelta(t, 36.5, score, 1e-9)
	assert.InDelta(t, 0.15, rets[0], 1e-12)
	assert.InDelta(t, 0.35, rets[1], 1e-12)
	assert.InDelta(t, 0.60, rets[2], 1e-12)

	_, _, ok = Momentum(closes[:126], []int{21, 63, 126}, []float64{0.3, 0.4, 0.3})
	assert.False(t, ok, "6m lookback needs 127 closes")
}

func TestTrendQuality(t *testing.T) {
	closes := append(flat(30, 100), flat(20, 110)...)

	q, ok := TrendQuality(closes, 20, 50, 10, 0.01)
	require.True(t, ok)
	assert.InDelta(t, 6.0/104.0/1.1, q, 1e-12)

	_, ok = TrendQuality(closes[:49], 20, 50, 10, 0.01)
	assert.False(t, ok)

	_, ok = TrendQuality(flat(50, 0), 20, 50, 10, 0.01)
	assert.False(t, ok, "zero SMA is undefined")
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 15)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	alternating := make([]float64, 15)
	for i := range alternating {
		alternating[i] = 100 + float64(i%2)
	}

	tests := []struct {
		name       string
		closes     []float64
		wantRSI    float64
		wantSignal float64
	}{
		{"all gains", rising, 100, 0},
		{"flat", flat(15, 100), 50, 1},
		{"balanced", alternating, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi, ok := RSI(tt.closes, 14)
			require.True(t, ok)
			assert.InDelta(t, tt.wantRSI, rsi, 1e-9)
			assert.InDelta(t, tt.wantSignal, RSIConfirmation(rsi), 1e-9)
		})
	}

	_, ok := RSI(flat(14, 100), 14)
	assert.False(t, ok)
}

func TestRSIConfirmation_Range(t *testing.T) {
	assert.Equal(t, 0.0, RSIConfirmation(0))
	assert.Equal(t, 0.0, RSIConfirmation(100))
	assert.Equal(t, 0.5, RSIConfirmation(75))
	assert.Equal(t, 0.5, RSIConfirmation(25))
}

func TestSharpe_UndefinedOnZeroStd(t *testing.T) {
	_, ok := Sharpe([]float64{0.01, 0.01, 0.01}, 252)
	assert.False(t, ok)

	s, ok := Sharpe([]float64{0.01, -0.01, 0.02}, 252)
	require.True(t, ok)
	sd, _ := StdDev([]float64{0.01, -0.01, 0.02}, 3)
	assert.InDelta(t, (0.02/3)/sd*math.Sqrt(252), s, 1e-12)
}

func TestVolatilityRisk(t *testing.T) {
	assert.Equal(t, 0.0, VolatilityRisk(0))
	assert.InDelta(t, -50.0, VolatilityRisk(1), 1e-12)
	assert.Less(t, VolatilityRisk(0.4), VolatilityRisk(0.2), "more volatile is more negative")
}

func TestMeanReversion(t *testing.T) {
	closes := append(flat(19, 100), 110)

	mr, ok := MeanReversion(closes, 20)
	require.True(t, ok)
	assert.InDelta(t, -9.5/math.Sqrt(5), mr, 1e-12)

	_, ok = MeanReversion(flat(20, 100), 20)
	assert.False(t, ok)
}

func TestNewLibrary_RejectsBadMomentumWeights(t *testing.T) {
	cfg := strategyconfig.Default().Signals
	cfg.Momentum.Weights = []float64{0.5, 0.4, 0.3}

	_, err := NewLibrary(cfg, logger.Nop())
	assert.Error(t, err)
}

func TestLibrary_Compute(t *testing.T) {
	lib, err := NewLibrary(strategyconfig.Default().Signals, logger.Nop())
	require.NoError(t, err)
	require.Equal(t, 127, lib.WindowLength())

	const n = 140
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}

	short := wavy(n, 50, 0.002, 0.5)
	for i := 0; i < n-100; i++ {
		short[i] = math.NaN()
	}
	gap := wavy(n, 80, 0.001, 1)
	gap[n-1] = math.NaN()

	instruments := []contracts.Instrument{
		{ID: "AAA", Sector: "Tech"},
		{ID: "BBB", Sector: "Energy"},
		{ID: "FLAT", Sector: "Utilities"},
		{ID: "GAP", Sector: "Tech"},
		{ID: "SHORT", Sector: "Health"},
	}
	m, err := contracts.NewPriceMatrixFromCloses(instruments, dates, [][]float64{
		wavy(n, 100, 0.003, 1.5),
		wavy(n, 40, -0.001, 0.8),
		flat(n, 25),
		gap,
		short,
	})
	require.NoError(t, err)

	query := append(instruments, contracts.Instrument{ID: "MISSING"})
	snap := lib.Compute(m, n-1, query)

	require.Len(t, snap.Eligible, 2)
	assert.Equal(t, "AAA", snap.Eligible[0].Instrument.ID)
	assert.Equal(t, "BBB", snap.Eligible[1].Instrument.ID)

	assert.Equal(t, map[string]contracts.IneligibleReason{
		"FLAT":    contracts.ReasonZeroVolatility,
		"GAP":     contracts.ReasonNoPrice,
		"SHORT":   contracts.ReasonInsufficientHistory,
		"MISSING": contracts.ReasonNotInMatrix,
	}, snap.Ineligible)

	for _, e := range snap.Eligible {
		assert.Greater(t, e.Volatility, 0.0)
		assert.LessOrEqual(t, e.Signals.VolatilityRisk, 0.0)
		assert.GreaterOrEqual(t, e.Signals.RSI, 0.0)
		assert.LessOrEqual(t, e.Signals.RSI, 1.0)
	}
	assert.Greater(t, snap.Eligible[0].Signals.Momentum, snap.Eligible[1].Signals.Momentum)

	// identical inputs, identical output
	assert.Equal(t, snap, lib.Compute(m, n-1, query))
}

func TestLibrary_GapTolerantWindow(t *testing.T) {
	lib, err := NewLibrary(strategyconfig.Default().Signals, logger.Nop())
	require.NoError(t, err)

	const n = 150
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	closes := wavy(n, 100, 0.002, 1)
	// 10 missing days still leave 140 observations
	for i := 20; i < 30; i++ {
		closes[i] = math.NaN()
	}
	m, err := contracts.NewPriceMatrixFromCloses(
		[]contracts.Instrument{{ID: "A"}, {ID: "B"}}, dates,
		[][]float64{closes, wavy(n, 10, 0.001, 0.1)})
	require.NoError(t, err)

	snap := lib.Compute(m, n-1, m.Instruments())
	assert.Len(t, snap.Eligible, 2)
	assert.Empty(t, snap.Ineligible)
}

func TestClassifyTrend(t *testing.T) {
	rules := strategyconfig.Default().Regime.Trend

	tests := []struct {
		name string
		in   contracts.TrendInputs
		want contracts.TrendState
	}{
		{
			name: "above sma with returns and rsi in band",
			in:   contracts.TrendInputs{Price: 110, SMA: 100, Return3M: 0.05, Return6M: 0.10, RSI: 55},
			want: contracts.TrendAccumulate,
		},
		{
			name: "above sma but overbought",
			in:   contracts.TrendInputs{Price: 110, SMA: 100, Return3M: 0.05, Return6M: 0.10, RSI: 75},
			want: contracts.TrendNeutral,
		},
		{
			name: "above sma with negative 3m",
			in:   contracts.TrendInputs{Price: 110, SMA: 100, Return3M: -0.02, Return6M: 0.10, RSI: 55},
			want: contracts.TrendNeutral,
		},
		{
			name: "below sma with negative 6m",
			in:   contracts.TrendInputs{Price: 90, SMA: 100, Return3M: -0.05, Return6M: -0.08, RSI: 35},
			want: contracts.TrendPause,
		},
		{
			name: "below sma with positive 6m",
			in:   contracts.TrendInputs{Price: 95, SMA: 100, Return3M: -0.05, Return6M: 0.02, RSI: 45},
			want: contracts.TrendNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrend(tt.in, rules))
		})
	}
}

func TestReadTrend(t *testing.T) {
	closes := wavy(200, 100, 0.002, 0.5)

	in, ok := ReadTrend(closes, 200, 63, 126, 14)
	require.True(t, ok)
	assert.InDelta(t, closes[199], in.Price, 1e-12)
	sma, _ := SMA(closes, 200)
	assert.InDelta(t, sma, in.SMA, 1e-12)
	assert.InDelta(t, closes[199]/closes[199-126]-1, in.Return6M, 1e-12)
	assert.Greater(t, in.Price, in.SMA)

	_, ok = ReadTrend(closes[:150], 200, 63, 126, 14)
	assert.False(t, ok, "sma window longer than history")
}
