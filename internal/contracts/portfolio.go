package contracts

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrDuplicatePosition is returned when a portfolio already holds the instrument
var ErrDuplicatePosition = errors.New("duplicate position")

// Action is the recommended or executed action on an instrument
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionTrim Action = "TRIM"
	ActionHold Action = "HOLD"
)

// TargetWeight is one selected instrument of a TargetPortfolio
type TargetWeight struct {
	Instrument Instrument `json:"instrument"`
	Weight     float64    `json:"weight"`
	Score      float64    `json:"score"`
	Rank       int        `json:"rank"`
}

// Rejection records why a ranked candidate was not admitted
type Rejection struct {
	InstrumentID string `json:"instrument_id"`
	Reason       string `json:"reason"`
}

// TargetPortfolio is the PortfolioSelector output for one date.
// Weights plus Cash sum to 1.0.
type TargetPortfolio struct {
	Date      time.Time      `json:"date"`
	Positions []TargetWeight `json:"positions"`
	Cash      float64        `json:"cash"`
	Rejected  []Rejection    `json:"rejected,omitempty"`
}

// TotalWeight returns the sum of all position weights
func (tp *TargetPortfolio) TotalWeight() float64 {
	total := 0.0
	for _, pos := range tp.Positions {
		total += pos.Weight
	}
	return total
}

// Count returns the number of positions
func (tp *TargetPortfolio) Count() int {
	return len(tp.Positions)
}

// Get finds a target by instrument ID
func (tp *TargetPortfolio) Get(id string) (TargetWeight, bool) {
	for _, pos := range tp.Positions {
		if pos.Instrument.ID == id {
			return pos, true
		}
	}
	return TargetWeight{}, false
}

// PositionState is the RiskManager state of a position
type PositionState string

const (
	PositionOpen       PositionState = "OPEN"
	PositionTrimmed    PositionState = "TRIMMED"
	PositionStoppedOut PositionState = "STOPPED_OUT"
	PositionClosed     PositionState = "CLOSED"
)

// Live reports whether risk rules still apply (OPEN or TRIMMED)
func (s PositionState) Live() bool {
	return s == PositionOpen || s == PositionTrimmed
}

// Position is a holding owned by exactly one Portfolio
type Position struct {
	Instrument      Instrument    `json:"instrument"`
	Quantity        float64       `json:"quantity"`
	EntryPrice      float64       `json:"entry_price"`
	EntryDate       time.Time     `json:"entry_date"`
	StopLossPrice   float64       `json:"stop_loss_price"`
	TakeProfitPrice float64       `json:"take_profit_price"`
	TargetWeight    float64       `json:"target_weight"`
	Weight          float64       `json:"weight"` // as of the last Reweight
	LastPrice       float64       `json:"last_price"`
	State           PositionState `json:"state"`
}

// MarketValue is quantity times the last marked price
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedReturn is the fractional gain versus entry
func (p *Position) UnrealizedReturn() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return p.LastPrice/p.EntryPrice - 1
}

// Portfolio is a set of positions keyed by instrument plus a cash balance.
// Weights come from Reweight so positions and cash always sum to 1.0.
type Portfolio struct {
	Cash      float64
	positions map[string]*Position
}

// NewPortfolio creates an all-cash portfolio
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{Cash: cash, positions: make(map[string]*Position)}
}

// Add inserts a position; one position per instrument
func (p *Portfolio) Add(pos *Position) error {
	if _, exists := p.positions[pos.Instrument.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, pos.Instrument.ID)
	}
	p.positions[pos.Instrument.ID] = pos
	return nil
}

// Get returns the position for an instrument
func (p *Portfolio) Get(id string) (*Position, bool) {
	pos, ok := p.positions[id]
	return pos, ok
}

// Remove deletes and returns the position for an instrument
func (p *Portfolio) Remove(id string) *Position {
	pos := p.positions[id]
	delete(p.positions, id)
	return pos
}

// Len returns the number of positions
func (p *Portfolio) Len() int {
	return len(p.positions)
}

// Positions returns positions ordered by instrument ID
func (p *Portfolio) Positions() []*Position {
	out := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument.ID < out[j].Instrument.ID })
	return out
}

// Equity is cash plus the market value of every position
func (p *Portfolio) Equity() float64 {
	equity := p.Cash
	for _, pos := range p.Positions() {
		equity += pos.MarketValue()
	}
	return equity
}

// Reweight recomputes position weights from market values and returns the cash weight
func (p *Portfolio) Reweight() float64 {
	equity := p.Equity()
	if equity <= 0 {
		for _, pos := range p.positions {
			pos.Weight = 0
		}
		return 1
	}
	for _, pos := range p.positions {
		pos.Weight = pos.MarketValue() / equity
	}
	return p.Cash / equity
}
