package contracts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetPortfolio_TotalWeight(t *testing.T) {
	tp := &TargetPortfolio{
		Date: time.Now(),
		Positions: []TargetWeight{
			{Instrument: Instrument{ID: "AAA"}, Weight: 0.30},
			{Instrument: Instrument{ID: "BBB"}, Weight: 0.25},
		},
		Cash: 0.45,
	}

	assert.InDelta(t, 0.55, tp.TotalWeight(), 1e-12)
	assert.Equal(t, 2, tp.Count())

	got, ok := tp.Get("BBB")
	require.True(t, ok)
	assert.Equal(t, 0.25, got.Weight)

	_, ok = tp.Get("ZZZ")
	assert.False(t, ok)
}

func TestPortfolio_WeightsAndCashSumToOne(t *testing.T) {
	p := NewPortfolio(400)
	require.NoError(t, p.Add(&Position{Instrument: Instrument{ID: "AAA"}, Quantity: 10, LastPrice: 30, State: PositionOpen}))
	require.NoError(t, p.Add(&Position{Instrument: Instrument{ID: "BBB"}, Quantity: 5, LastPrice: 60, State: PositionOpen}))

	assert.Equal(t, 1000.0, p.Equity())

	cash := p.Reweight()
	sum := cash
	for _, pos := range p.Positions() {
		sum += pos.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.4, cash, 1e-12)

	for _, pos := range p.Positions() {
		assert.InDelta(t, 0.3, pos.Weight, 1e-12, pos.Instrument.ID)
	}
}

func TestPortfolio_RejectsDuplicateInstrument(t *testing.T) {
	p := NewPortfolio(100)
	require.NoError(t, p.Add(&Position{Instrument: Instrument{ID: "AAA"}}))

	err := p.Add(&Position{Instrument: Instrument{ID: "AAA"}})
	assert.True(t, errors.Is(err, ErrDuplicatePosition))
	assert.Equal(t, 1, p.Len())
}

func TestPortfolio_PositionsOrdered(t *testing.T) {
	p := NewPortfolio(0)
	for _, id := range []string{"CCC", "AAA", "BBB"} {
		require.NoError(t, p.Add(&Position{Instrument: Instrument{ID: id}}))
	}

	ids := []string{}
	for _, pos := range p.Positions() {
		ids = append(ids, pos.Instrument.ID)
	}
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, ids)

	removed := p.Remove("BBB")
	require.NotNil(t, removed)
	assert.Equal(t, 2, p.Len())
}

func TestPortfolio_ZeroEquity(t *testing.T) {
	p := NewPortfolio(0)
	assert.Equal(t, 1.0, p.Reweight())
}

func TestPosition_UnrealizedReturn(t *testing.T) {
	pos := Position{EntryPrice: 100, LastPrice: 92, Quantity: 2}
	assert.InDelta(t, -0.08, pos.UnrealizedReturn(), 1e-12)
	assert.Equal(t, 184.0, pos.MarketValue())

	zero := Position{}
	assert.False(t, math.IsNaN(zero.UnrealizedReturn()))
}

func TestPositionState_Live(t *testing.T) {
	tests := []struct {
		state PositionState
		want  bool
	}{
		{PositionOpen, true},
		{PositionTrimmed, true},
		{PositionStoppedOut, false},
		{PositionClosed, false},
	}
	for _, tt := range tests {
		if got := tt.state.Live(); got != tt.want {
			t.Errorf("%s.Live() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
