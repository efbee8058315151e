package selection

import (
	"fmt"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Rejection reasons emitted by the screener
const (
	RejectVolatilityCap = "volatility_cap"
	RejectMinComposite  = "min_composite"
	RejectFundamentals  = "fundamentals"
	RejectNoFundamental = "no_fundamentals"
)

// Screener applies hard cut filters before the greedy fill
// ⭐ SSOT: 하드컷 필터는 여기서만
type Screener struct {
	config strategyconfig.Portfolio
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(config strategyconfig.Portfolio, log *logger.Logger) *Screener {
	return &Screener{config: config, logger: log}
}

// Screen keeps the candidates that pass every filter, preserving order
func (s *Screener) Screen(scored []contracts.ScoredInstrument, fundamentals map[string]contracts.Fundamentals) ([]contracts.ScoredInstrument, []contracts.Rejection) {
	passed := make([]contracts.ScoredInstrument, 0, len(scored))
	var rejected []contracts.Rejection
	filtered := make(map[string]int)

	for _, cand := range scored {
		reason := s.checkConditions(cand, fundamentals)
		if reason == "" {
			passed = append(passed, cand)
			continue
		}
		filtered[reason]++
		rejected = append(rejected, contracts.Rejection{InstrumentID: cand.Instrument.ID, Reason: reason})
	}

	if len(rejected) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"total_input": len(scored),
			"passed":      len(passed),
			"filters":     filtered,
		}).Debug("Screening completed")
	}

	return passed, rejected
}

// checkConditions returns the first failing filter, or "" when the candidate passes
func (s *Screener) checkConditions(cand contracts.ScoredInstrument, fundamentals map[string]contracts.Fundamentals) string {
	// 1. Volatility cap (annualized percent)
	if s.config.VolatilityCapPct > 0 && cand.Volatility > s.config.VolatilityCapPct {
		return RejectVolatilityCap
	}

	// 2. Composite floor (strictly greater)
	if cand.Composite <= s.config.MinComposite {
		return RejectMinComposite
	}

	// 3. Fundamentals (long-horizon variants only)
	f := s.config.Fundamentals
	if !f.Enabled {
		return ""
	}
	fund, ok := fundamentals[cand.Instrument.ID]
	if !ok {
		return RejectNoFundamental
	}
	if reason := checkFundamentals(f, fund); reason != "" {
		return fmt.Sprintf("%s:%s", RejectFundamentals, reason)
	}
	return ""
}

func checkFundamentals(f strategyconfig.FundamentalFilters, fund contracts.Fundamentals) string {
	switch {
	case f.MinMarketCap > 0 && fund.MarketCap < f.MinMarketCap:
		return "market_cap"
	case f.MaxPE > 0 && (fund.PE <= 0 || fund.PE > f.MaxPE):
		return "pe"
	case fund.ROE < f.MinROE:
		return "roe"
	case f.MaxDebtToEquity > 0 && fund.DebtToEquity > f.MaxDebtToEquity:
		return "debt_to_equity"
	case fund.ProfitMargin < f.MinProfitMargin:
		return "profit_margin"
	}
	return ""
}
