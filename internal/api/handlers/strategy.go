package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/engine"
	"github.com/wonny/aegis-momentum/internal/marketdata"
	"github.com/wonny/aegis-momentum/internal/strategyconfig"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// StrategyService is what the strategy endpoints need from the engine
type StrategyService interface {
	Latest(ctx context.Context) (*contracts.RecommendedPortfolio, error)
	Refresh(ctx context.Context) (*contracts.RecommendedPortfolio, error)
	Backtest(ctx context.Context, from, to time.Time) (*contracts.BacktestResult, error)
}

// StrategyHandler handles recommendation and backtest endpoints
// ⭐ SSOT: 전략 API 핸들러는 이 구조체에서만
type StrategyHandler struct {
	service StrategyService
	logger  *logger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(service StrategyService, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		service: service,
		logger:  log,
	}
}

// GetRecommendation returns the latest recommended portfolio
// GET /api/recommendation
func (h *StrategyHandler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Latest(r.Context())
	if errors.Is(err, engine.ErrNoRecommendation) {
		respondError(w, http.StatusNotFound, "No recommendation computed yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recommendation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recommendation")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// RefreshRecommendation recomputes the recommendation now
// POST /api/recommendation/refresh
func (h *StrategyHandler) RefreshRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh recommendation")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// BacktestResponse trims the equity curve unless requested
type BacktestResponse struct {
	*contracts.BacktestResult
	EquityCurve []contracts.PerformanceRecord `json:"equity_curve,omitempty"`
	Trades      []contracts.TradeEvent        `json:"trades,omitempty"`
}

// RunBacktest runs the served strategy over a date range
// GET /api/backtest?from=YYYY-MM-DD&to=YYYY-MM-DD[&detail=true]
func (h *StrategyHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' must not be before 'from'")
		return
	}

	result, err := h.service.Backtest(r.Context(), from, to)
	if err != nil {
		h.logger.WithError(err).Error("Backtest failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := BacktestResponse{BacktestResult: result}
	if q.Get("detail") == "true" {
		resp.EquityCurve = result.EquityCurve
		resp.Trades = result.Trades
	}
	respondJSON(w, http.StatusOK, resp)
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	var verr strategyconfig.ValidationError
	switch {
	case errors.Is(err, contracts.ErrNoMarketData), errors.Is(err, marketdata.ErrLowQuality):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
