package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

// AccountRepo maintains resource_accounts: one row per (user, resource)
// holding the available/locked split. All mutations are conditional
// single-statement UPDATEs so concurrent callers serialize on the row.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetBalance returns the available/locked pair for one resource. A user
// who never held the resource gets a zero row, not an error.
func (r *AccountRepo) GetBalance(ctx context.Context, userID uuid.UUID, resource string) (*models.ResourceBalance, error) {
	b := models.ResourceBalance{UserID: userID, Resource: resource, Available: decimal.Zero, Locked: decimal.Zero}
	err := r.pool.QueryRow(ctx, `
		SELECT available, locked, updated_at
		FROM resource_accounts WHERE user_id = $1 AND resource = $2
	`, userID, resource).Scan(&b.Available, &b.Locked, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return &b, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBalances returns every resource row the user holds.
func (r *AccountRepo) ListBalances(ctx context.Context, userID uuid.UUID) ([]*models.ResourceBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, resource, available, locked, updated_at
		FROM resource_accounts WHERE user_id = $1 ORDER BY resource
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ResourceBalance
	for rows.Next() {
		var b models.ResourceBalance
		if err := rows.Scan(&b.UserID, &b.Resource, &b.Available, &b.Locked, &b.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// Credit adds amount to available, creating the row on first touch.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO resource_accounts (user_id, resource, available, locked)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, resource)
		DO UPDATE SET available = resource_accounts.available + EXCLUDED.available, updated_at = now()
	`, userID, resource, amount)
	return err
}

// Debit removes amount from available if the balance covers it.
func (r *AccountRepo) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error {
	result, err := tx.Exec(ctx, `
		UPDATE resource_accounts
		SET available = available - $1, updated_at = now()
		WHERE user_id = $2 AND resource = $3 AND available >= $1
	`, amount, userID, resource)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Lock moves amount from available to locked. Used when an offer lists a
// fungible resource.
func (r *AccountRepo) Lock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error {
	result, err := tx.Exec(ctx, `
		UPDATE resource_accounts
		SET available = available - $1, locked = locked + $1, updated_at = now()
		WHERE user_id = $2 AND resource = $3 AND available >= $1
	`, amount, userID, resource)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Unlock moves amount back from locked to available. Used on offer
// cancellation and expiry.
func (r *AccountRepo) Unlock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error {
	result, err := tx.Exec(ctx, `
		UPDATE resource_accounts
		SET available = available + $1, locked = locked - $1, updated_at = now()
		WHERE user_id = $2 AND resource = $3 AND locked >= $1
	`, amount, userID, resource)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientLocked
	}
	return nil
}

// SettleLocked removes amount from locked without returning it to
// available: the reservation was consumed by a completed sale.
func (r *AccountRepo) SettleLocked(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error {
	result, err := tx.Exec(ctx, `
		UPDATE resource_accounts
		SET locked = locked - $1, updated_at = now()
		WHERE user_id = $2 AND resource = $3 AND locked >= $1
	`, amount, userID, resource)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientLocked
	}
	return nil
}
