package portfolio

import (
	"math"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/selection"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Selector turns ranked scores into a target portfolio
// ⭐ SSOT: 포트폴리오 구성 로직은 여기서만
type Selector struct {
	config    strategyconfig.Portfolio
	maxWeight float64
	screener  *selection.Screener
	sizer     *Sizer
	logger    *logger.Logger
}

// NewSelector creates a selector; per-position weights are capped at risk.max_weight
func NewSelector(cfg *strategyconfig.Config, log *logger.Logger) *Selector {
	return &Selector{
		config:    cfg.Portfolio,
		maxWeight: cfg.Risk.MaxWeight,
		screener:  selection.NewScreener(cfg.Portfolio, log),
		sizer:     NewSizer(cfg.Portfolio.KellyCap),
		logger:    log,
	}
}

// Select screens, orders and greedily admits candidates.
// Fewer than top_n names is valid; the remainder stays in cash.
func (s *Selector) Select(date time.Time, scored []contracts.ScoredInstrument, fundamentals map[string]contracts.Fundamentals) contracts.TargetPortfolio {
	target := contracts.TargetPortfolio{Date: date, Cash: 1}

	// 1. Hard filters
	candidates, rejected := s.screener.Screen(scored, fundamentals)
	target.Rejected = rejected

	// 2. Deterministic order
	ordered := make([]contracts.ScoredInstrument, len(candidates))
	copy(ordered, candidates)
	selection.SortByComposite(ordered)

	// 3. Greedy fill under sector limits
	book := newSectorBook(s.config.Sector)
	for _, cand := range ordered {
		if len(target.Positions) >= s.config.TopN {
			break
		}

		weight, err := s.weightFor(cand)
		if err != nil {
			target.Rejected = append(target.Rejected, contracts.Rejection{InstrumentID: cand.Instrument.ID, Reason: RejectInvalidVolatility})
			continue
		}
		if weight <= 0 {
			target.Rejected = append(target.Rejected, contracts.Rejection{InstrumentID: cand.Instrument.ID, Reason: RejectZeroSize})
			continue
		}

		sector := cand.Instrument.Sector
		if reason := book.check(sector, cand.Composite, weight); reason != "" {
			target.Rejected = append(target.Rejected, contracts.Rejection{InstrumentID: cand.Instrument.ID, Reason: reason})
			continue
		}
		book.admit(sector, weight)

		target.Positions = append(target.Positions, contracts.TargetWeight{
			Instrument: cand.Instrument,
			Weight:     weight,
			Score:      cand.Composite,
			Rank:       len(target.Positions) + 1,
		})
	}

	// 4. Renormalize: positions + cash = 1
	total := target.TotalWeight()
	if total > 1 {
		for i := range target.Positions {
			target.Positions[i].Weight /= total
		}
		total = 1
	}
	target.Cash = math.Max(0, 1-total)

	s.logger.WithFields(map[string]interface{}{
		"date":         contracts.DateKey(date),
		"candidates":   len(scored),
		"positions":    len(target.Positions),
		"rejected":     len(target.Rejected),
		"total_weight": total,
		"cash":         target.Cash,
	}).Debug("Portfolio selected")

	return target
}

// weightFor sizes a candidate according to the weighting mode
func (s *Selector) weightFor(cand contracts.ScoredInstrument) (float64, error) {
	switch s.config.Weighting {
	case strategyconfig.WeightingKelly:
		w, err := s.sizer.Size(cand.Composite, cand.Volatility)
		if err != nil {
			return 0, err
		}
		return math.Min(w, s.maxWeight), nil
	default:
		if !(cand.Volatility > 0) {
			return 0, ErrInvalidVolatility
		}
		return math.Min(1/float64(s.config.TopN), s.maxWeight), nil
	}
}
