package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// PostgresProvider reads daily bars from data.daily_prices
// ⭐ SSOT: 일별 시세 DB 조회는 여기서만
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a provider on an existing pool
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// GetHistory retrieves the bars of one instrument within [start, end]
func (p *PostgresProvider) GetHistory(ctx context.Context, instrument contracts.Instrument, start, end time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := p.pool.Query(ctx, query, instrument.ID, contracts.Day(start), contracts.Day(end))
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query daily prices %s: %w", instrument.ID, err)
	}
	defer rows.Close()

	series := contracts.PriceSeries{Instrument: instrument}
	for rows.Next() {
		var (
			bar                    contracts.PriceBar
			open, high, low, close int64
		)
		if err := rows.Scan(&bar.Date, &open, &high, &low, &close, &bar.Volume); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan daily price %s: %w", instrument.ID, err)
		}
		bar.Date = contracts.Day(bar.Date)
		bar.Open = float64(open)
		bar.High = float64(high)
		bar.Low = float64(low)
		bar.Close = float64(close)
		series.Bars = append(series.Bars, bar)
	}
	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("iterate daily prices %s: %w", instrument.ID, err)
	}

	return series, nil
}
