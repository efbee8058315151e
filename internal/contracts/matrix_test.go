package contracts

import (
	"errors"
	"math"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPriceMatrix_AlignsUnionCalendar(t *testing.T) {
	a := PriceSeries{
		Instrument: Instrument{ID: "BBB", Sector: "Tech"},
		Bars: []PriceBar{
			{Date: day(2024, 1, 2), Open: 9, Close: 10},
			{Date: day(2024, 1, 4), Open: 11, Close: 12},
		},
	}
	b := PriceSeries{
		Instrument: Instrument{ID: "AAA", Sector: "Energy"},
		Bars: []PriceBar{
			{Date: day(2024, 1, 2), Close: 20},
			{Date: day(2024, 1, 3), Close: 21},
			{Date: day(2024, 1, 4), Close: 22},
		},
	}

	m, err := NewPriceMatrix([]PriceSeries{a, b})
	if err != nil {
		t.Fatalf("NewPriceMatrix failed: %v", err)
	}

	rows, cols := m.Dims()
	if rows != 2 || cols != 3 {
		t.Fatalf("Dims() = (%d, %d), want (2, 3)", rows, cols)
	}

	// rows are sorted by ID
	if m.Instrument(0).ID != "AAA" || m.Instrument(1).ID != "BBB" {
		t.Errorf("rows not sorted: %v", m.Instruments())
	}

	r, _ := m.Row("BBB")
	if _, ok := m.Close(r, 1); ok {
		t.Error("expected missing cell for BBB on 2024-01-03")
	}
	if v, ok := m.LastClose(r, 1); !ok || v != 10 {
		t.Errorf("LastClose = %v, %v; want 10, true", v, ok)
	}
	if v, col, ok := m.NextTradable(r, 0); !ok || v != 11 || col != 2 {
		t.Errorf("NextTradable = %v, %d, %v; want 11, 2, true", v, col, ok)
	}

	// AAA has no open: next tradable falls back to close
	ra, _ := m.Row("AAA")
	if v, _, ok := m.NextTradable(ra, 0); !ok || v != 21 {
		t.Errorf("NextTradable fallback = %v, want 21", v)
	}
}

func TestPriceMatrix_WindowSkipsGaps(t *testing.T) {
	nan := math.NaN()
	insts := []Instrument{{ID: "X"}, {ID: "Y"}}
	dates := []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}
	closes := [][]float64{
		{1, nan, 3, 4},
		{5, 6, 7, 8},
	}

	m, err := NewPriceMatrixFromCloses(insts, dates, closes)
	if err != nil {
		t.Fatalf("NewPriceMatrixFromCloses failed: %v", err)
	}

	got := m.Window(0, 3, 3)
	want := []float64{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Window len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Window[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if w := m.Window(0, 3, 4); w != nil {
		t.Errorf("expected nil window when history is short, got %v", w)
	}
}

func TestNewPriceMatrixFromCloses_DimensionMismatch(t *testing.T) {
	insts := []Instrument{{ID: "X"}, {ID: "Y"}}
	dates := []time.Time{day(2024, 1, 1), day(2024, 1, 2)}

	tests := []struct {
		name   string
		closes [][]float64
	}{
		{"missing row", [][]float64{{1, 2}}},
		{"short row", [][]float64{{1, 2}, {3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceMatrixFromCloses(insts, dates, tt.closes)
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestNewPriceMatrix_RejectsMalformedSeries(t *testing.T) {
	tests := []struct {
		name   string
		series []PriceSeries
		want   error
	}{
		{
			name: "unordered dates",
			series: []PriceSeries{{Instrument: Instrument{ID: "X"}, Bars: []PriceBar{
				{Date: day(2024, 1, 2), Close: 1}, {Date: day(2024, 1, 1), Close: 1},
			}}},
			want: ErrInvalidSeries,
		},
		{
			name: "non-positive close",
			series: []PriceSeries{{Instrument: Instrument{ID: "X"}, Bars: []PriceBar{
				{Date: day(2024, 1, 1), Close: 0},
			}}},
			want: ErrInvalidSeries,
		},
		{
			name: "duplicate instrument",
			series: []PriceSeries{
				{Instrument: Instrument{ID: "X"}, Bars: []PriceBar{{Date: day(2024, 1, 1), Close: 1}}},
				{Instrument: Instrument{ID: "X"}, Bars: []PriceBar{{Date: day(2024, 1, 2), Close: 1}}},
			},
			want: ErrDuplicateInstrument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPriceMatrix(tt.series); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPriceMatrix_ColumnAtOrBefore(t *testing.T) {
	m, err := NewPriceMatrix([]PriceSeries{{Instrument: Instrument{ID: "X"}, Bars: []PriceBar{
		{Date: day(2024, 1, 2), Close: 1},
		{Date: day(2024, 1, 5), Close: 2},
	}}})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := m.ColumnAtOrBefore(day(2024, 1, 1)); ok {
		t.Error("expected no column before the first date")
	}
	if c, ok := m.ColumnAtOrBefore(day(2024, 1, 4)); !ok || c != 0 {
		t.Errorf("ColumnAtOrBefore(01-04) = %d, %v", c, ok)
	}
	if c, ok := m.ColumnAtOrBefore(day(2024, 2, 1)); !ok || c != 1 {
		t.Errorf("ColumnAtOrBefore(02-01) = %d, %v", c, ok)
	}
}
