package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a PENDING posting inside the caller's transaction. The
// row only becomes observable to other sessions once that transaction
// commits; rollback leaves no trace.
func (r *Repository) Record(ctx context.Context, tx pgx.Tx, p *models.PaymentTransaction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = models.PaymentStatusPending
	return tx.QueryRow(ctx, `
		INSERT INTO payment_transactions (id, market_tx_id, from_account, to_account, amount, resource, tx_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, p.MarketTxID, p.FromAccount, p.ToAccount, p.Amount, p.Resource, p.TxType, p.Status).Scan(&p.CreatedAt)
}

// Confirm transitions one PENDING row to CONFIRMED.
func (r *Repository) Confirm(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE payment_transactions SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.PaymentStatusConfirmed, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ConfirmByMarketTx flips every PENDING posting of one market
// transaction to CONFIRMED. Called as the last write of the purchase's
// unit of work.
func (r *Repository) ConfirmByMarketTx(ctx context.Context, tx pgx.Tx, marketTxID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE payment_transactions SET status = $2
		WHERE market_tx_id = $1 AND status = $3
	`, marketTxID, models.PaymentStatusConfirmed, models.PaymentStatusPending)
	return err
}

// Fail transitions one PENDING row to FAILED. Runs on the pool: the row
// it fails was committed by an earlier unit of work.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE payment_transactions SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.PaymentStatusFailed, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AttachChainTx stamps the external chain transaction id onto a
// CONFIRMED posting. Only sets it once: a posting that already carries
// an id returns ErrAlreadyAttached, a missing or still-PENDING posting
// returns pgx.ErrNoRows.
func (r *Repository) AttachChainTx(ctx context.Context, id uuid.UUID, chainTxID string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE payment_transactions SET blockchain_tx_id = $2
		WHERE id = $1 AND status = $3 AND blockchain_tx_id IS NULL
	`, id, chainTxID, models.PaymentStatusConfirmed)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var attached *string
		if err := r.pool.QueryRow(ctx, `
			SELECT blockchain_tx_id FROM payment_transactions WHERE id = $1
		`, id).Scan(&attached); err != nil {
			return err
		}
		if attached != nil {
			return ErrAlreadyAttached
		}
		return pgx.ErrNoRows
	}
	return nil
}

// SumConfirmed nets all CONFIRMED postings touching the account in one
// resource: inbound positive, outbound negative.
func (r *Repository) SumConfirmed(ctx context.Context, accountID uuid.UUID, resource string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN to_account = $1 THEN amount ELSE -amount END), 0)
		FROM payment_transactions
		WHERE status = $2 AND resource = $3 AND (to_account = $1 OR from_account = $1)
	`, accountID, models.PaymentStatusConfirmed, resource).Scan(&sum)
	return sum, err
}

func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.PaymentTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, market_tx_id, from_account, to_account, amount, resource, tx_type, blockchain_tx_id, status, created_at
		FROM payment_transactions
		WHERE to_account = $1 OR from_account = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PaymentTransaction
	for rows.Next() {
		var p models.PaymentTransaction
		if err := rows.Scan(&p.ID, &p.MarketTxID, &p.FromAccount, &p.ToAccount, &p.Amount, &p.Resource, &p.TxType, &p.BlockchainTxID, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
