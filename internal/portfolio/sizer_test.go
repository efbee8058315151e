package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizer_Scenario(t *testing.T) {
	s := NewSizer(0.20)

	f, err := s.Size(80, 30)
	require.NoError(t, err)
	assert.InDelta(t, 0.0267, f, 5e-5)
	assert.InDelta(t, 80.0/30.0/100.0, f, 1e-12)
}

func TestSizer_Bounds(t *testing.T) {
	s := NewSizer(0.20)

	tests := []struct {
		name  string
		score float64
		vol   float64
		want  float64
	}{
		{"capped", 100, 1, 0.20},
		{"negative score clamps to zero", -15, 20, 0},
		{"zero score", 0, 20, 0},
		{"low vol under cap", 50, 50, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Size(tt.score, tt.vol)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestSizer_InvalidVolatility(t *testing.T) {
	s := NewSizer(0.20)
	for _, vol := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := s.Size(50, vol)
		assert.ErrorIs(t, err, ErrInvalidVolatility, "vol=%v", vol)
	}
}

func TestSizer_Monotonic(t *testing.T) {
	s := NewSizer(0.20)

	prev := -1.0
	for score := 0.0; score <= 100; score += 2.5 {
		f, err := s.Size(score, 25)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, prev, "non-decreasing in score")
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 0.20)
		prev = f
	}

	prev = math.Inf(1)
	for vol := 1.0; vol <= 120; vol += 3 {
		f, err := s.Size(60, vol)
		require.NoError(t, err)
		assert.LessOrEqual(t, f, prev, "non-increasing in volatility")
		prev = f
	}
}
