package contracts

import (
	"sort"
	"time"
)

// Instrument is a tradable identifier with its sector tag. Immutable.
type Instrument struct {
	ID     string `json:"id" yaml:"id"`
	Sector string `json:"sector" yaml:"sector"`
}

// Fundamentals holds the balance-sheet figures used by the optional hard filters
type Fundamentals struct {
	MarketCap    float64 `json:"market_cap" yaml:"market_cap"`
	PE           float64 `json:"pe" yaml:"pe"`
	ROE          float64 `json:"roe" yaml:"roe"`                       // percent
	DebtToEquity float64 `json:"debt_to_equity" yaml:"debt_to_equity"` // ratio
	ProfitMargin float64 `json:"profit_margin" yaml:"profit_margin"`   // percent
}

// Universe is the materialized instrument set for a run.
// Snapshots (keyed by YYYY-MM-DD) restrict membership on specific dates;
// a date without a snapshot uses every instrument.
type Universe struct {
	Instruments  []Instrument            `json:"instruments"`
	Fundamentals map[string]Fundamentals `json:"fundamentals,omitempty"`
	Snapshots    map[string][]string     `json:"snapshots,omitempty"`
}

// NewUniverse builds a universe sorted by instrument ID
func NewUniverse(instruments []Instrument) Universe {
	sorted := make([]Instrument, len(instruments))
	copy(sorted, instruments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return Universe{Instruments: sorted}
}

// Active returns the members on date, ordered by ID
func (u Universe) Active(date time.Time) []Instrument {
	ids, ok := u.Snapshots[DateKey(date)]
	if !ok {
		return u.Instruments
	}

	member := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		member[id] = struct{}{}
	}

	active := make([]Instrument, 0, len(ids))
	for _, inst := range u.Instruments {
		if _, ok := member[inst.ID]; ok {
			active = append(active, inst)
		}
	}
	return active
}

// Lookup finds an instrument by ID
func (u Universe) Lookup(id string) (Instrument, bool) {
	for _, inst := range u.Instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}

// Day truncates t to midnight UTC. Every date in the engine is a Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
