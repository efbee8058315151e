package contracts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrDimensionMismatch is returned when explicit rows do not match the declared shape
	ErrDimensionMismatch = errors.New("price matrix dimension mismatch")
	// ErrDuplicateInstrument is returned when two series share an instrument ID
	ErrDuplicateInstrument = errors.New("duplicate instrument")
)

// PriceMatrix is the aligned (instrument x date) price table every signal reads from.
// Rows are instruments sorted by ID, columns the union trading calendar.
// A missing observation is NaN.
type PriceMatrix struct {
	instruments []Instrument
	rows        map[string]int
	dates       []time.Time
	cols        map[time.Time]int
	open        [][]float64
	close       [][]float64
}

// NewPriceMatrix aligns the series onto their union calendar
func NewPriceMatrix(series []PriceSeries) (*PriceMatrix, error) {
	sorted := make([]PriceSeries, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Instrument.ID < sorted[j].Instrument.ID })

	calendar := make(map[time.Time]struct{})
	for i, s := range sorted {
		if i > 0 && sorted[i-1].Instrument.ID == s.Instrument.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInstrument, s.Instrument.ID)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		for _, bar := range s.Bars {
			calendar[Day(bar.Date)] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(calendar))
	for d := range calendar {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	m := newMatrix(instrumentsOf(sorted), dates)
	for r, s := range sorted {
		for _, bar := range s.Bars {
			c := m.cols[Day(bar.Date)]
			m.close[r][c] = bar.Close
			if bar.Open > 0 {
				m.open[r][c] = bar.Open
			}
		}
	}
	return m, nil
}

// NewPriceMatrixFromCloses builds a matrix from an explicit close table.
// closes[i][j] is instrument i on dates[j]; use NaN for a missing cell.
func NewPriceMatrixFromCloses(instruments []Instrument, dates []time.Time, closes [][]float64) (*PriceMatrix, error) {
	if len(closes) != len(instruments) {
		return nil, fmt.Errorf("%w: %d rows for %d instruments", ErrDimensionMismatch, len(closes), len(instruments))
	}
	for i, row := range closes {
		if len(row) != len(dates) {
			return nil, fmt.Errorf("%w: row %s has %d columns, want %d",
				ErrDimensionMismatch, instruments[i].ID, len(row), len(dates))
		}
	}

	series := make([]PriceSeries, len(instruments))
	for i, inst := range instruments {
		series[i].Instrument = inst
		for j, c := range closes[i] {
			if math.IsNaN(c) {
				continue
			}
			series[i].Bars = append(series[i].Bars, PriceBar{Date: dates[j], Open: c, High: c, Low: c, Close: c})
		}
	}

	m, err := NewPriceMatrix(series)
	if err != nil {
		return nil, err
	}
	// 관측치가 하나도 없는 날짜는 달력에서 사라지므로 거부
	if len(m.dates) != len(dates) {
		return nil, fmt.Errorf("%w: %d dates carry no observation", ErrDimensionMismatch, len(dates)-len(m.dates))
	}
	return m, nil
}

func newMatrix(instruments []Instrument, dates []time.Time) *PriceMatrix {
	m := &PriceMatrix{
		instruments: instruments,
		rows:        make(map[string]int, len(instruments)),
		dates:       dates,
		cols:        make(map[time.Time]int, len(dates)),
		open:        make([][]float64, len(instruments)),
		close:       make([][]float64, len(instruments)),
	}
	for i, inst := range instruments {
		m.rows[inst.ID] = i
		m.open[i] = nanRow(len(dates))
		m.close[i] = nanRow(len(dates))
	}
	for j, d := range dates {
		m.cols[d] = j
	}
	return m
}

func instrumentsOf(series []PriceSeries) []Instrument {
	out := make([]Instrument, len(series))
	for i, s := range series {
		out[i] = s.Instrument
	}
	return out
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// Dims returns (instruments, dates)
func (m *PriceMatrix) Dims() (int, int) {
	return len(m.instruments), len(m.dates)
}

// Instruments returns the row instruments
func (m *PriceMatrix) Instruments() []Instrument {
	out := make([]Instrument, len(m.instruments))
	copy(out, m.instruments)
	return out
}

// Dates returns the column calendar
func (m *PriceMatrix) Dates() []time.Time {
	out := make([]time.Time, len(m.dates))
	copy(out, m.dates)
	return out
}

// Date returns the date of column t
func (m *PriceMatrix) Date(t int) time.Time {
	return m.dates[t]
}

// Row returns the row index of an instrument
func (m *PriceMatrix) Row(id string) (int, bool) {
	r, ok := m.rows[id]
	return r, ok
}

// Instrument returns the instrument of row r
func (m *PriceMatrix) Instrument(r int) Instrument {
	return m.instruments[r]
}

// Column returns the column index of a date
func (m *PriceMatrix) Column(date time.Time) (int, bool) {
	c, ok := m.cols[Day(date)]
	return c, ok
}

// ColumnAtOrBefore returns the last column whose date is <= date
func (m *PriceMatrix) ColumnAtOrBefore(date time.Time) (int, bool) {
	date = Day(date)
	i := sort.Search(len(m.dates), func(i int) bool { return m.dates[i].After(date) })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// Close returns the close of row r on column t
func (m *PriceMatrix) Close(r, t int) (float64, bool) {
	v := m.close[r][t]
	return v, !math.IsNaN(v)
}

// LastClose returns the most recent close at or before column t
func (m *PriceMatrix) LastClose(r, t int) (float64, bool) {
	for j := t; j >= 0; j-- {
		if v := m.close[r][j]; !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

// NextTradable returns the first tradable price strictly after column t:
// that bar's open, or its close when the open is missing.
func (m *PriceMatrix) NextTradable(r, t int) (float64, int, bool) {
	for j := t + 1; j < len(m.dates); j++ {
		if math.IsNaN(m.close[r][j]) {
			continue
		}
		if v := m.open[r][j]; !math.IsNaN(v) {
			return v, j, true
		}
		return m.close[r][j], j, true
	}
	return 0, 0, false
}

// Window returns the last n observed closes of row r at or before column t,
// oldest first, or nil when fewer than n exist. Missing cells are skipped.
func (m *PriceMatrix) Window(r, t, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	k := n - 1
	for j := t; j >= 0 && k >= 0; j-- {
		if v := m.close[r][j]; !math.IsNaN(v) {
			out[k] = v
			k--
		}
	}
	if k >= 0 {
		return nil
	}
	return out
}
