package backtest

import (
	"sort"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// pendingExit is a stop-out waiting for its fill bar
type pendingExit struct {
	col   int
	price float64
}

// runState is the mutable, path-dependent state of one run
type runState struct {
	prices   *contracts.PriceMatrix
	universe contracts.Universe
	costRate float64

	portfolio  *contracts.Portfolio
	pending    map[string]pendingExit
	trades     []contracts.TradeEvent
	curve      []contracts.PerformanceRecord
	peak       float64
	rebalances int
	dampened   int
	ineligible map[contracts.IneligibleReason]int
}

func newRunState(in Input, capital, costRate float64) *runState {
	return &runState{
		prices:     in.Prices,
		universe:   in.Universe,
		costRate:   costRate,
		portfolio:  contracts.NewPortfolio(capital),
		pending:    make(map[string]pendingExit),
		ineligible: make(map[contracts.IneligibleReason]int),
	}
}

// mark sets every position's LastPrice to the last known close at column t
func (st *runState) mark(t int) {
	for _, pos := range st.portfolio.Positions() {
		r, ok := st.prices.Row(pos.Instrument.ID)
		if !ok {
			continue
		}
		if price, ok := st.prices.LastClose(r, t); ok {
			pos.LastPrice = price
		}
	}
}

// settleExits fills stop-outs whose fill bar has arrived
func (st *runState) settleExits(t int, date time.Time) {
	if len(st.pending) == 0 {
		return
	}

	ids := make([]string, 0, len(st.pending))
	for id := range st.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	equity := st.portfolio.Equity()
	for _, id := range ids {
		exit := st.pending[id]
		if t < exit.col {
			continue
		}
		pos, ok := st.portfolio.Get(id)
		if ok {
			st.sell(date, pos, pos.Quantity, exit.price, contracts.ActionSell, contracts.ReasonStopLoss, equity)
			pos.State = contracts.PositionClosed
			st.portfolio.Remove(id)
		}
		delete(st.pending, id)
	}
}

func (st *runState) sell(date time.Time, pos *contracts.Position, qty, price float64, action contracts.Action, reason contracts.TradeReason, equity float64) {
	if qty > pos.Quantity {
		qty = pos.Quantity
	}
	if qty <= 0 {
		return
	}

	value := qty * price
	cost := value * st.costRate
	st.portfolio.Cash += value - cost
	pos.Quantity -= qty

	st.trades = append(st.trades, contracts.TradeEvent{
		Date:         date,
		InstrumentID: pos.Instrument.ID,
		Sector:       pos.Instrument.Sector,
		Action:       action,
		Reason:       reason,
		Quantity:     qty,
		WeightDelta:  -value / equity,
		Price:        price,
		Value:        value,
		Cost:         cost,
	})
}

func (st *runState) buy(date time.Time, pos *contracts.Position, qty, price float64, reason contracts.TradeReason, equity float64) {
	if qty <= 0 {
		return
	}

	value := qty * price
	cost := value * st.costRate
	st.portfolio.Cash -= value + cost

	// 평균 단가
	if pos.Quantity > 0 {
		pos.EntryPrice = (pos.Quantity*pos.EntryPrice + value) / (pos.Quantity + qty)
	} else {
		pos.EntryPrice = price
	}
	pos.Quantity += qty

	st.trades = append(st.trades, contracts.TradeEvent{
		Date:         date,
		InstrumentID: pos.Instrument.ID,
		Sector:       pos.Instrument.Sector,
		Action:       contracts.ActionBuy,
		Reason:       reason,
		Quantity:     qty,
		WeightDelta:  value / equity,
		Price:        price,
		Value:        value,
		Cost:         cost,
	})
}

// record marks the portfolio and appends the day's PerformanceRecord
func (st *runState) record(date time.Time) {
	cashWeight := st.portfolio.Reweight()
	equity := st.portfolio.Equity()
	if equity > st.peak {
		st.peak = equity
	}
	drawdown := 0.0
	if st.peak > 0 {
		drawdown = (st.peak - equity) / st.peak
	}

	st.curve = append(st.curve, contracts.PerformanceRecord{
		Date:     date,
		Equity:   equity,
		Peak:     st.peak,
		Drawdown: drawdown,
		Cash:     cashWeight,
	})
}
