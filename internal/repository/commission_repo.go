package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

type CommissionRepo struct {
	pool *pgxpool.Pool
}

func NewCommissionRepo(pool *pgxpool.Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

// GetRate returns the fee fraction for a currency. pgx.ErrNoRows is
// passed through; the orchestrator decides whether that is fatal.
func (r *CommissionRepo) GetRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT rate FROM market_commissions WHERE currency = $1
	`, currency).Scan(&rate)
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func (r *CommissionRepo) Upsert(ctx context.Context, c *models.MarketCommission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO market_commissions (currency, rate)
		VALUES ($1, $2)
		ON CONFLICT (currency) DO UPDATE SET rate = EXCLUDED.rate, updated_at = now()
		RETURNING updated_at
	`, c.Currency, c.Rate).Scan(&c.UpdatedAt)
}

func (r *CommissionRepo) List(ctx context.Context) ([]*models.MarketCommission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT currency, rate, updated_at FROM market_commissions ORDER BY currency
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MarketCommission
	for rows.Next() {
		var c models.MarketCommission
		if err := rows.Scan(&c.Currency, &c.Rate, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
