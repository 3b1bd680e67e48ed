package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galaktika/backend/internal/models"
)

// MarketTxRepo persists market_transactions. The table carries a partial
// unique index on offer_id restricted to PENDING/COMPLETED rows, so the
// first buyer wins the offer at INSERT time and later attempts fail with
// a unique violation instead of racing inside the postings.
type MarketTxRepo struct {
	pool *pgxpool.Pool
}

func NewMarketTxRepo(pool *pgxpool.Pool) *MarketTxRepo {
	return &MarketTxRepo{pool: pool}
}

// CreatePending inserts the PENDING transaction in its own statement,
// outside the postings' unit of work, so a later FAILED outcome survives
// that unit's rollback. Returns ErrOfferUnavailable if another
// non-terminal transaction already holds the offer.
func (r *MarketTxRepo) CreatePending(ctx context.Context, offerID, buyerID, sellerID uuid.UUID) (*models.MarketTransaction, error) {
	t := models.MarketTransaction{
		ID:       uuid.New(),
		OfferID:  offerID,
		BuyerID:  buyerID,
		SellerID: sellerID,
		Status:   models.MarketTxStatusPending,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO market_transactions (id, offer_id, buyer_id, seller_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.OfferID, t.BuyerID, t.SellerID, t.Status).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrOfferUnavailable
		}
		return nil, err
	}
	return &t, nil
}

func (r *MarketTxRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MarketTransaction, error) {
	var t models.MarketTransaction
	err := r.pool.QueryRow(ctx, `
		SELECT id, offer_id, buyer_id, seller_id, status, completed_at, created_at
		FROM market_transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.OfferID, &t.BuyerID, &t.SellerID, &t.Status, &t.CompletedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkCompleted transitions PENDING → COMPLETED inside the purchase's
// unit of work.
func (r *MarketTxRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) error {
	result, err := tx.Exec(ctx, `
		UPDATE market_transactions SET status = $2, completed_at = $3
		WHERE id = $1 AND status = $4
	`, id, models.MarketTxStatusCompleted, completedAt, models.MarketTxStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkFailed runs on the pool: it is called after the postings rolled
// back and must be durable on its own.
func (r *MarketTxRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE market_transactions SET status = $2
		WHERE id = $1 AND status = $3
	`, id, models.MarketTxStatusFailed, models.MarketTxStatusPending)
	return err
}

// HasOpen reports whether the offer has a PENDING or COMPLETED
// transaction attached. Runs inside the caller's transaction so the
// check shares the unit of work that holds the offer row locked.
func (r *MarketTxRepo) HasOpen(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM market_transactions
			WHERE offer_id = $1 AND status IN ($2, $3)
		)
	`, offerID, models.MarketTxStatusPending, models.MarketTxStatusCompleted).Scan(&exists)
	return exists, err
}

func (r *MarketTxRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.MarketTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, offer_id, buyer_id, seller_id, status, completed_at, created_at
		FROM market_transactions WHERE buyer_id = $1 ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MarketTransaction
	for rows.Next() {
		var t models.MarketTransaction
		if err := rows.Scan(&t.ID, &t.OfferID, &t.BuyerID, &t.SellerID, &t.Status, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
