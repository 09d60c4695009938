// Package store mirrors the JSON bar cache into Postgres so other tooling
// can query the history with SQL. The mirror is optional; the screener
// itself reads only the file cache.
package store

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leiwong/rpscan/internal/market"
)

// BarRepository persists daily bars.
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository.
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// SaveBatch upserts a series for one instrument. NaN fields are stored as
// NULL so the mirror keeps the missing-value semantics of the cache.
func (r *BarRepository) SaveBatch(ctx context.Context, code string, bars market.Series) error {
	query := `
		INSERT INTO daily_bars (code, trade_date, open, high, low, close, volume, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount
	`

	for _, bar := range bars {
		_, err := r.pool.Exec(ctx, query,
			code, bar.Date,
			nullable(bar.Open), nullable(bar.High), nullable(bar.Low),
			nullable(bar.Close), nullable(bar.Volume), nullable(bar.Amount),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LatestDate returns the most recent stored trade date for a code, or the
// zero time when the instrument has no rows yet.
func (r *BarRepository) LatestDate(ctx context.Context, code string) (time.Time, error) {
	query := `
		SELECT COALESCE(MAX(trade_date), 'epoch'::date)
		FROM daily_bars
		WHERE code = $1
	`

	var latest time.Time
	if err := r.pool.QueryRow(ctx, query, code).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest.Unix() <= 0 {
		return time.Time{}, nil
	}
	return latest, nil
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
