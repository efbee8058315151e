package portfolio

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// Repository reads live holdings so recommendations can be diffed against them
// ⭐ SSOT: 보유 종목 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new holdings repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CurrentHoldings returns the most recent holdings snapshot, ordered by instrument
func (r *Repository) CurrentHoldings(ctx context.Context) ([]contracts.Holding, error) {
	query := `
		SELECT stock_code, weight, avg_price
		FROM portfolio.holdings
		WHERE holding_date = (SELECT MAX(holding_date) FROM portfolio.holdings)
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]contracts.Holding, 0)
	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.InstrumentID, &h.Weight, &h.EntryPrice); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return holdings, nil
}
