package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// PostgresProvider lists the universe from data.stocks
// ⭐ SSOT: 유니버스 DB 조회는 여기서만
type PostgresProvider struct {
	db     *pgxpool.Pool
	filter Filter
}

// NewPostgresProvider creates a provider on an existing pool
func NewPostgresProvider(db *pgxpool.Pool, filter Filter) *PostgresProvider {
	return &PostgresProvider{db: db, filter: filter}
}

// List returns the stocks listed on date that pass the filter
func (p *PostgresProvider) List(ctx context.Context, date time.Time) ([]contracts.Instrument, error) {
	query := `
		SELECT
			s.code,
			s.name,
			COALESCE(s.sector, ''),
			s.listing_date,
			s.delisting_date
		FROM data.stocks s
		WHERE s.listing_date <= $1
		  AND (s.status = 'active' OR s.delisting_date > $1)
		ORDER BY s.code
	`

	rows, err := p.db.Query(ctx, query, contracts.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var (
			m        Member
			listed   *time.Time
			delisted *time.Time
		)
		if err := rows.Scan(&m.Instrument.ID, &m.Name, &m.Instrument.Sector, &listed, &delisted); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if listed != nil {
			m.Listed = *listed
		}
		if delisted != nil {
			m.Delisted = *delisted
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stocks: %w", err)
	}

	return p.filter.Apply(members, date), nil
}

// Fundamentals returns the latest reported figures per stock.
// debt_ratio is stored in percent and converted to a debt/equity ratio.
func (p *PostgresProvider) Fundamentals(ctx context.Context) (map[string]contracts.Fundamentals, error) {
	query := `
		SELECT
			s.code,
			COALESCE(mc.market_cap, 0),
			COALESCE(f.per, 0),
			COALESCE(f.roe, 0),
			COALESCE(f.debt_ratio, 0),
			COALESCE(f.revenue, 0),
			COALESCE(f.net_profit, 0)
		FROM data.stocks s
		LEFT JOIN LATERAL (
			SELECT market_cap FROM data.market_cap
			WHERE stock_code = s.code
			ORDER BY trade_date DESC LIMIT 1
		) mc ON TRUE
		LEFT JOIN LATERAL (
			SELECT per, roe, debt_ratio, revenue, net_profit FROM data.fundamentals
			WHERE stock_code = s.code
			ORDER BY report_date DESC LIMIT 1
		) f ON TRUE
		WHERE s.status = 'active'
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]contracts.Fundamentals)
	for rows.Next() {
		var (
			code                string
			marketCap           int64
			per, roe, debtRatio float64
			revenue, netProfit  int64
		)
		if err := rows.Scan(&code, &marketCap, &per, &roe, &debtRatio, &revenue, &netProfit); err != nil {
			return nil, fmt.Errorf("scan fundamentals: %w", err)
		}
		f := contracts.Fundamentals{
			MarketCap:    float64(marketCap),
			PE:           per,
			ROE:          roe,
			DebtToEquity: debtRatio / 100,
		}
		if revenue != 0 {
			f.ProfitMargin = float64(netProfit) / float64(revenue) * 100
		}
		out[code] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fundamentals: %w", err)
	}

	return out, nil
}
