package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/api/handlers"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/engine"
	"github.com/wonny/aegis-momentum/internal/marketdata"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

type fakeService struct {
	latest     *contracts.RecommendedPortfolio
	refreshErr error
	backtest   func(from, to time.Time) (*contracts.BacktestResult, error)
	refreshed  int
}

func (f *fakeService) Latest(context.Context) (*contracts.RecommendedPortfolio, error) {
	if f.latest == nil {
		return nil, engine.ErrNoRecommendation
	}
	return f.latest, nil
}

func (f *fakeService) Refresh(context.Context) (*contracts.RecommendedPortfolio, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.refreshed++
	f.latest = &contracts.RecommendedPortfolio{
		StrategyID: "momentum_v1",
		Positions:  []contracts.Recommendation{{Instrument: contracts.Instrument{ID: "A"}, Action: contracts.ActionBuy, TargetWeight: 0.18}},
		Cash:       0.82,
	}
	return f.latest, nil
}

func (f *fakeService) Backtest(_ context.Context, from, to time.Time) (*contracts.BacktestResult, error) {
	return f.backtest(from, to)
}

func newTestRouter(svc *fakeService) http.Handler {
	log := logger.Nop()
	return NewRouter(handlers.NewStrategyHandler(svc, log), metrics.New().Handler(), log)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_Dependencies(t *testing.T) {
	log := logger.Nop()
	h := NewRouter(handlers.NewStrategyHandler(&fakeService{}, log), nil, log,
		HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return fmt.Errorf("connection refused") }},
	)

	rec := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["postgres"])
	assert.Equal(t, "connection refused", body.Dependencies["redis"])

	// metrics disabled
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics").Code)
}

func TestRecommendationLifecycle(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodGet, "/api/recommendation")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/recommendation/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.refreshed)

	rec = do(t, r, http.MethodGet, "/api/recommendation")
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.RecommendedPortfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "momentum_v1", got.StrategyID)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, contracts.ActionBuy, got.Positions[0].Action)

	// refresh is POST only
	rec = do(t, r, http.MethodGet, "/api/recommendation/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefresh_DataErrors(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("load: %w", contracts.ErrNoMarketData),
		fmt.Errorf("%w: [instrument coverage 0.40 < 0.80]", marketdata.ErrLowQuality),
	} {
		svc := &fakeService{refreshErr: err}
		rec := do(t, newTestRouter(svc), http.MethodPost, "/api/recommendation/refresh")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, err.Error())
	}
}

func TestBacktest(t *testing.T) {
	var gotFrom, gotTo time.Time
	svc := &fakeService{backtest: func(from, to time.Time) (*contracts.BacktestResult, error) {
		gotFrom, gotTo = from, to
		return &contracts.BacktestResult{
			RunID:       "run-1",
			Metrics:     contracts.Metrics{Sharpe: 1.2},
			EquityCurve: []contracts.PerformanceRecord{{Equity: 100}},
		}, nil
	}}
	r := newTestRouter(svc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCurve  bool
	}{
		{"summary", "?from=2023-01-02&to=2023-12-29", http.StatusOK, false},
		{"detail", "?from=2023-01-02&to=2023-12-29&detail=true", http.StatusOK, true},
		{"missing from", "?to=2023-12-29", http.StatusBadRequest, false},
		{"bad to", "?from=2023-01-02&to=12/29/2023", http.StatusBadRequest, false},
		{"reversed", "?from=2023-12-29&to=2023-01-02", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, "/api/backtest"+tt.query)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "run-1", body["run_id"])
			_, hasCurve := body["equity_curve"]
			assert.Equal(t, tt.wantCurve, hasCurve)
			assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), gotFrom)
			assert.Equal(t, time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), gotTo)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "momentum_recommendations_total")
}
