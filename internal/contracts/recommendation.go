package contracts

import "time"

// Holding is a live position supplied by the caller of a recommendation
type Holding struct {
	InstrumentID string  `json:"instrument_id" yaml:"instrument_id"`
	Weight       float64 `json:"weight" yaml:"weight"`
	EntryPrice   float64 `json:"entry_price" yaml:"entry_price"`
}

// Recommendation is one line of a RecommendedPortfolio
type Recommendation struct {
	Instrument    Instrument `json:"instrument"`
	Action        Action     `json:"action"`
	TargetWeight  float64    `json:"target_weight"`
	CurrentWeight float64    `json:"current_weight"`
	Score         float64    `json:"score"`
	Rank          int        `json:"rank,omitempty"`
	Reason        string     `json:"reason"`
}

// RecommendedPortfolio is the selector output for the most recent date
type RecommendedPortfolio struct {
	Date        time.Time        `json:"date"`
	StrategyID  string           `json:"strategy_id"`
	ConfigHash  string           `json:"config_hash"`
	Positions   []Recommendation `json:"positions"`
	Cash        float64          `json:"cash"`
	Regime      *RegimeStatus    `json:"regime,omitempty"` // nil without a regime filter
	GeneratedAt time.Time        `json:"generated_at"`
}

// Count returns the number of recommendations with the given action
func (r *RecommendedPortfolio) Count(action Action) int {
	n := 0
	for _, p := range r.Positions {
		if p.Action == action {
			n++
		}
	}
	return n
}
