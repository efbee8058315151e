// Package audit analyzes finished backtests and stores their summaries.
package audit

import (
	"math"
	"sort"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

const qtyEpsilon = 1e-9

// TradeStats summarizes realized trades. Every SELL or TRIM is one realization.
type TradeStats struct {
	Realized     int     `json:"realized"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // negative
	ProfitFactor float64 `json:"profit_factor"`
	ClosedTrips  int     `json:"closed_trips"` // positions taken to zero
}

// Attribution is the realized P&L of one instrument or sector
type Attribution struct {
	Key          string  `json:"key"`
	RealizedPnL  float64 `json:"realized_pnl"`
	Contribution float64 `json:"contribution"` // RealizedPnL / initial capital
	Trades       int     `json:"trades"`
}

// Report is the post-run analysis of a BacktestResult
type Report struct {
	RunID       string                        `json:"run_id"`
	StrategyID  string                        `json:"strategy_id"`
	Trades      TradeStats                    `json:"trades"`
	Turnover    float64                       `json:"turnover"` // annualized traded value / average equity
	TotalCost   float64                       `json:"total_cost"`
	AvgCash     float64                       `json:"avg_cash"`
	ExitReasons map[contracts.TradeReason]int `json:"exit_reasons"`
	Sectors     []Attribution                 `json:"sectors"`
	Instruments []Attribution                 `json:"instruments"`
}

type lot struct {
	qty   float64
	basis float64 // includes buy costs
}

// Analyze replays the trade log with average-cost accounting
// ⭐ SSOT: 백테스트 사후 분석은 여기서만
func Analyze(result *contracts.BacktestResult) *Report {
	report := &Report{
		RunID:       result.RunID,
		StrategyID:  result.StrategyID,
		ExitReasons: make(map[contracts.TradeReason]int),
	}

	lots := make(map[string]*lot)
	byInstrument := make(map[string]*Attribution)
	bySector := make(map[string]*Attribution)
	var grossWin, grossLoss, traded float64

	for _, tr := range result.Trades {
		report.TotalCost += tr.Cost
		traded += tr.Value

		l, ok := lots[tr.InstrumentID]
		if !ok {
			l = &lot{}
			lots[tr.InstrumentID] = l
		}

		if tr.Action == contracts.ActionBuy {
			l.qty += tr.Quantity
			l.basis += tr.Value + tr.Cost
			continue
		}
		if l.qty <= qtyEpsilon {
			continue
		}

		qty := math.Min(tr.Quantity, l.qty)
		avg := l.basis / l.qty
		pnl := tr.Value - tr.Cost - avg*qty
		l.basis -= avg * qty
		l.qty -= qty
		if l.qty <= qtyEpsilon {
			l.qty, l.basis = 0, 0
			report.Trades.ClosedTrips++
		}

		report.Trades.Realized++
		report.ExitReasons[tr.Reason]++
		if pnl > 0 {
			report.Trades.Wins++
			grossWin += pnl
		} else {
			report.Trades.Losses++
			grossLoss += pnl
		}

		addAttribution(byInstrument, tr.InstrumentID, pnl)
		sector := tr.Sector
		if sector == "" {
			sector = "unknown"
		}
		addAttribution(bySector, sector, pnl)
	}

	st := &report.Trades
	if st.Realized > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Realized)
	}
	if st.Wins > 0 {
		st.AvgWin = grossWin / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLoss = grossLoss / float64(st.Losses)
	}
	if grossLoss < 0 {
		st.ProfitFactor = grossWin / -grossLoss
	}

	report.Turnover, report.AvgCash = turnover(result, traded)
	report.Instruments = sortedAttributions(byInstrument, result.InitialCapital)
	report.Sectors = sortedAttributions(bySector, result.InitialCapital)
	return report
}

func addAttribution(m map[string]*Attribution, key string, pnl float64) {
	a, ok := m[key]
	if !ok {
		a = &Attribution{Key: key}
		m[key] = a
	}
	a.RealizedPnL += pnl
	a.Trades++
}

// turnover annualizes traded value over average equity; also returns the average cash weight
func turnover(result *contracts.BacktestResult, traded float64) (float64, float64) {
	n := len(result.EquityCurve)
	if n == 0 {
		return 0, 0
	}
	var equity, cash float64
	for _, p := range result.EquityCurve {
		equity += p.Equity
		cash += p.Cash
	}
	avgEquity := equity / float64(n)
	avgCash := cash / float64(n)
	if avgEquity <= 0 {
		return 0, avgCash
	}

	years := result.EndDate.Sub(result.StartDate).Hours() / 24 / 365.25
	if years <= 0 {
		return traded / avgEquity, avgCash
	}
	return traded / avgEquity / years, avgCash
}

// sortedAttributions orders by realized P&L descending, then key
func sortedAttributions(m map[string]*Attribution, capital float64) []Attribution {
	out := make([]Attribution, 0, len(m))
	for _, a := range m {
		if capital > 0 {
			a.Contribution = a.RealizedPnL / capital
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RealizedPnL != out[j].RealizedPnL {
			return out[i].RealizedPnL > out[j].RealizedPnL
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// TopContributors returns the first n attributions (already sorted best first)
func TopContributors(attrs []Attribution, n int) []Attribution {
	n = clampCount(n, len(attrs))
	return attrs[:n]
}

// BottomContributors returns the worst n attributions, worst first
func BottomContributors(attrs []Attribution, n int) []Attribution {
	n = clampCount(n, len(attrs))
	out := make([]Attribution, n)
	for i := 0; i < n; i++ {
		out[i] = attrs[len(attrs)-1-i]
	}
	return out
}

// clampCount bounds a requested count to [0, size]
func clampCount(n, size int) int {
	return max(0, min(n, size))
}
