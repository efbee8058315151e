package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// RunSummary is one stored backtest run
type RunSummary struct {
	RunID      string            `json:"run_id"`
	StrategyID string            `json:"strategy_id"`
	ConfigHash string            `json:"config_hash"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    time.Time         `json:"end_date"`
	Metrics    contracts.Metrics `json:"metrics"`
	Report     *Report           `json:"report,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Repository persists backtest summaries to audit.backtest_runs.
// The run ID is derived from the config hash, so re-running a config overwrites its row.
// ⭐ SSOT: Audit 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun upserts the summary of a run
func (r *Repository) SaveRun(ctx context.Context, result *contracts.BacktestResult, report *Report) error {
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO audit.backtest_runs (
			run_id, strategy_id, config_hash, start_date, end_date,
			initial_capital, final_equity, metrics, report, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (run_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			initial_capital = EXCLUDED.initial_capital,
			final_equity = EXCLUDED.final_equity,
			metrics = EXCLUDED.metrics,
			report = EXCLUDED.report,
			created_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		result.RunID, result.StrategyID, result.ConfigHash, result.StartDate, result.EndDate,
		result.InitialCapital, result.FinalEquity, metricsJSON, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}
	return nil
}

// ListRuns returns the latest runs, newest first. An empty strategyID lists all strategies.
func (r *Repository) ListRuns(ctx context.Context, strategyID string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, strategy_id, config_hash, start_date, end_date, metrics, report, created_at
		FROM audit.backtest_runs
		WHERE ($1 = '' OR strategy_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, strategyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var metricsJSON, reportJSON []byte
		if err := rows.Scan(
			&run.RunID, &run.StrategyID, &run.ConfigHash, &run.StartDate, &run.EndDate,
			&metricsJSON, &reportJSON, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		if len(reportJSON) > 0 {
			run.Report = &Report{}
			if err := json.Unmarshal(reportJSON, run.Report); err != nil {
				return nil, fmt.Errorf("failed to unmarshal report: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
