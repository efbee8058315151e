// Package risk monitors open positions against stop-loss, take-profit and
// weight-drift rules every simulated period.
package risk

import (
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

const weightTolerance = 1e-9

// Decision is a state transition requested for one position
type Decision struct {
	InstrumentID  string                  `json:"instrument_id"`
	Action        contracts.Action        `json:"action"` // SELL or TRIM
	Reason        contracts.TradeReason   `json:"reason"`
	State         contracts.PositionState `json:"state"`
	CurrentWeight float64                 `json:"current_weight"`
	TargetWeight  float64                 `json:"target_weight"` // 0 for a full exit
	Price         float64                 `json:"price"`
}

// Manager evaluates the exit rules
// ⭐ SSOT: 손절/익절/비중 초과 판단은 여기서만
//
// Priority: stop-loss > take-profit > hard cap.
// A position between the soft band floor and the soft cap is left alone.
type Manager struct {
	cfg    strategyconfig.Risk
	logger *logger.Logger
}

// NewManager creates a risk manager
func NewManager(cfg strategyconfig.Risk, log *logger.Logger) *Manager {
	return &Manager{cfg: cfg, logger: log}
}

// Levels returns the stop-loss and take-profit prices for an entry
func (m *Manager) Levels(entry float64) (stopLoss, takeProfit float64) {
	return entry * (1 + m.cfg.StopLossPct), entry * (1 + m.cfg.TakeProfitPct)
}

// Evaluate checks every live position. Positions must already carry the
// period's LastPrice and Weight.
func (m *Manager) Evaluate(positions []*contracts.Position) []Decision {
	var decisions []Decision
	for _, pos := range positions {
		if d, ok := m.Check(pos); ok {
			decisions = append(decisions, d)
		}
	}

	if len(decisions) > 0 {
		m.logger.WithFields(map[string]interface{}{
			"positions": len(positions),
			"decisions": len(decisions),
		}).Debug("Risk checks triggered")
	}
	return decisions
}

// Check applies the rules to one position
func (m *Manager) Check(pos *contracts.Position) (Decision, bool) {
	if !pos.State.Live() {
		return Decision{}, false
	}

	// 1. Stop-loss (전량 청산, 다음 거래 가능 가격에 체결)
	stop, _ := m.Levels(pos.EntryPrice)
	if pos.LastPrice <= stop {
		return m.decision(pos, contracts.ActionSell, contracts.ReasonStopLoss, contracts.PositionStoppedOut, 0), true
	}

	// 2. Take-profit: gain reached and weight above soft cap
	if pos.UnrealizedReturn() >= m.cfg.TakeProfitPct && pos.Weight > m.cfg.MaxWeight+weightTolerance {
		target := pos.TargetWeight
		if target <= 0 || target > m.cfg.MaxWeight {
			target = m.cfg.MaxWeight
		}
		return m.decision(pos, contracts.ActionTrim, contracts.ReasonTakeProfit, contracts.PositionTrimmed, target), true
	}

	// 3. Hard cap regardless of P&L
	if pos.Weight > m.cfg.HardCapWeight+weightTolerance {
		return m.decision(pos, contracts.ActionTrim, contracts.ReasonHardCap, contracts.PositionTrimmed, m.cfg.HardCapWeight), true
	}

	return Decision{}, false
}

// InBand reports whether a held weight is close enough to its target to skip a resize
func (m *Manager) InBand(current, target float64) bool {
	diff := current - target
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.cfg.RebalanceBand+weightTolerance
}

func (m *Manager) decision(pos *contracts.Position, action contracts.Action, reason contracts.TradeReason, state contracts.PositionState, target float64) Decision {
	m.logger.WithFields(map[string]interface{}{
		"instrument": pos.Instrument.ID,
		"reason":     string(reason),
		"price":      pos.LastPrice,
		"entry":      pos.EntryPrice,
		"weight":     pos.Weight,
		"target":     target,
	}).Debug("Risk rule fired")

	return Decision{
		InstrumentID:  pos.Instrument.ID,
		Action:        action,
		Reason:        reason,
		State:         state,
		CurrentWeight: pos.Weight,
		TargetWeight:  target,
		Price:         pos.LastPrice,
	}
}
