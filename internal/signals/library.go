package signals

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Library computes the six raw signals for every instrument of a snapshot
// ⭐ SSOT: 시그널 계산은 여기서만
type Library struct {
	cfg    strategyconfig.Signals
	window int
	logger *logger.Logger
}

// NewLibrary validates the signal parameters and creates a library
func NewLibrary(cfg strategyconfig.Signals, log *logger.Logger) (*Library, error) {
	m := cfg.Momentum
	if len(m.LookbacksDays) == 0 || len(m.LookbacksDays) != len(m.Weights) {
		return nil, fmt.Errorf("momentum lookbacks and weights must be non-empty and equal length")
	}
	sum := 0.0
	for _, w := range m.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("momentum weights must sum to 1.0, got %.4f", sum)
	}
	if cfg.AnnualizationDays <= 0 {
		return nil, fmt.Errorf("annualization_days must be > 0")
	}

	return &Library{
		cfg:    cfg,
		window: cfg.WindowLength(),
		logger: log,
	}, nil
}

// WindowLength is the number of closes required for eligibility
func (l *Library) WindowLength() int {
	return l.window
}

// Compute builds the signal snapshot for column t.
// Instruments are evaluated in ID order; the ineligible ones carry a reason.
func (l *Library) Compute(m *contracts.PriceMatrix, t int, instruments []contracts.Instrument) contracts.SignalSnapshot {
	snapshot := contracts.SignalSnapshot{
		Date:       m.Date(t),
		Ineligible: make(map[string]contracts.IneligibleReason),
	}

	sorted := make([]contracts.Instrument, len(instruments))
	copy(sorted, instruments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, inst := range sorted {
		r, ok := m.Row(inst.ID)
		if !ok {
			snapshot.Ineligible[inst.ID] = contracts.ReasonNotInMatrix
			continue
		}
		if _, ok := m.Close(r, t); !ok {
			snapshot.Ineligible[inst.ID] = contracts.ReasonNoPrice
			continue
		}

		sig, reason := l.ComputeWindow(inst, m.Window(r, t, l.window))
		if reason != "" {
			snapshot.Ineligible[inst.ID] = reason
			l.logger.WithFields(map[string]interface{}{
				"instrument": inst.ID,
				"date":       contracts.DateKey(snapshot.Date),
				"reason":     string(reason),
			}).Debug("Instrument ineligible")
			continue
		}
		snapshot.Eligible = append(snapshot.Eligible, sig)
	}

	l.logger.WithFields(map[string]interface{}{
		"date":       contracts.DateKey(snapshot.Date),
		"eligible":   len(snapshot.Eligible),
		"ineligible": len(snapshot.Ineligible),
	}).Debug("Signals computed")

	return snapshot
}

// ComputeWindow evaluates one chronological close window ending at the signal date.
// A non-empty reason means the instrument is ineligible; no signal is zero-filled.
func (l *Library) ComputeWindow(inst contracts.Instrument, closes []float64) (contracts.InstrumentSignals, contracts.IneligibleReason) {
	out := contracts.InstrumentSignals{Instrument: inst}
	if len(closes) < l.window {
		return out, contracts.ReasonInsufficientHistory
	}
	closes = closes[len(closes)-l.window:]

	// 1. Momentum
	mom, rets, ok := Momentum(closes, l.cfg.Momentum.LookbacksDays, l.cfg.Momentum.Weights)
	if !ok {
		return out, contracts.ReasonInsufficientHistory
	}

	// 2. Volatility (공통 입력: 일간 수익률)
	returns := Returns(closes)
	dailyStd, ok := StdDev(returns, len(returns))
	if !ok {
		return out, contracts.ReasonInsufficientHistory
	}
	if dailyStd == 0 {
		return out, contracts.ReasonZeroVolatility
	}
	sigma := dailyStd * math.Sqrt(float64(l.cfg.AnnualizationDays))

	// 3. Quality
	q := l.cfg.Quality
	quality, ok := TrendQuality(closes, q.SMAShort, q.SMALong, q.StabilityFactor, dailyStd)
	if !ok {
		return out, contracts.ReasonZeroSMA
	}

	// 4. RSI
	rsi, ok := RSI(closes, l.cfg.RSI.Period)
	if !ok {
		return out, contracts.ReasonInsufficientHistory
	}

	// 5. Sharpe
	sharpe, ok := Sharpe(returns, l.cfg.AnnualizationDays)
	if !ok {
		return out, contracts.ReasonZeroVolatility
	}

	// 6. Mean reversion
	mr, ok := MeanReversion(closes, l.cfg.MeanReversion.Window)
	if !ok {
		return out, contracts.ReasonZeroDeviation
	}

	out.Signals = contracts.SignalSet{
		Momentum:       mom,
		Quality:        quality,
		VolatilityRisk: VolatilityRisk(sigma),
		RSI:            RSIConfirmation(rsi),
		Sharpe:         sharpe,
		MeanReversion:  mr,
	}
	out.Close = closes[len(closes)-1]
	out.Volatility = sigma * 100
	out.RSIValue = rsi
	if len(rets) > 0 {
		out.Return1M = rets[0]
	}
	if len(rets) > 1 {
		out.Return3M = rets[1]
	}
	if len(rets) > 2 {
		out.Return6M = rets[2]
	}
	return out, ""
}
