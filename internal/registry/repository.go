package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galaktika/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, o *models.MarketOffer) error {
	return tx.QueryRow(ctx, `
		INSERT INTO market_offers (id, seller_id, item_type, item_id, resource, amount, price, currency, status, offer_type, expires_at, is_item_locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, o.ID, o.SellerID, o.ItemType, o.ItemID, o.Resource, o.Amount, o.Price, o.Currency,
		o.Status, o.OfferType, o.ExpiresAt, o.IsItemLocked).Scan(&o.CreatedAt, &o.UpdatedAt)
}

const offerColumns = `id, seller_id, item_type, item_id, resource, amount, price, currency, status, offer_type, expires_at, is_item_locked, created_at, updated_at`

func scanOffer(row pgx.Row) (*models.MarketOffer, error) {
	var o models.MarketOffer
	err := row.Scan(&o.ID, &o.SellerID, &o.ItemType, &o.ItemID, &o.Resource, &o.Amount,
		&o.Price, &o.Currency, &o.Status, &o.OfferType, &o.ExpiresAt, &o.IsItemLocked,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MarketOffer, error) {
	return scanOffer(r.pool.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM market_offers WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the offer row. Concurrent purchases and
// cancellations on the same offer serialize here.
func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketOffer, error) {
	return scanOffer(tx.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM market_offers WHERE id = $1 FOR UPDATE
	`, id))
}

// UpdateStatus transitions the offer only if it is still in the expected
// state. Returns false when another writer got there first.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE market_offers SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListActive is the buyer read path: ACTIVE, not expired, and not held
// by a pending or completed transaction. itemType and currency filter
// when non-empty.
func (r *Repository) ListActive(ctx context.Context, now time.Time, itemType, currency string, limit int) ([]*models.MarketOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM market_offers o
		WHERE o.status = $1
		  AND (o.expires_at IS NULL OR o.expires_at > $2)
		  AND ($3 = '' OR o.item_type = $3)
		  AND ($4 = '' OR o.currency = $4)
		  AND NOT EXISTS (
			SELECT 1 FROM market_transactions mt
			WHERE mt.offer_id = o.id AND mt.status IN ('PENDING', 'COMPLETED')
		  )
		ORDER BY o.created_at DESC
		LIMIT $5
	`, models.OfferStatusActive, now, itemType, currency, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MarketOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ListExpiredForUpdate locks and returns every ACTIVE offer whose
// deadline passed and which no transaction holds. The sweep reverses
// their reservations and marks them EXPIRED in the same tx.
func (r *Repository) ListExpiredForUpdate(ctx context.Context, tx pgx.Tx, now time.Time) ([]*models.MarketOffer, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+offerColumns+` FROM market_offers o
		WHERE o.status = $1 AND o.expires_at IS NOT NULL AND o.expires_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM market_transactions mt
			WHERE mt.offer_id = o.id AND mt.status IN ('PENDING', 'COMPLETED')
		  )
		FOR UPDATE
	`, models.OfferStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MarketOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
