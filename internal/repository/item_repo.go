package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galaktika/backend/internal/models"
)

type ItemRepo struct {
	pool *pgxpool.Pool
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

func (r *ItemRepo) Create(ctx context.Context, it *models.GameItem) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO game_items (id, owner_id, item_type, name, is_reserved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, it.ID, it.OwnerID, it.ItemType, it.Name, it.IsReserved).Scan(&it.CreatedAt, &it.UpdatedAt)
}

func (r *ItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GameItem, error) {
	var it models.GameItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, item_type, name, is_reserved, created_at, updated_at
		FROM game_items WHERE id = $1
	`, id).Scan(&it.ID, &it.OwnerID, &it.ItemType, &it.Name, &it.IsReserved, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.GameItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, item_type, name, is_reserved, created_at, updated_at
		FROM game_items WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.GameItem
	for rows.Next() {
		var it models.GameItem
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.ItemType, &it.Name, &it.IsReserved, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// Reserve marks the item as backing an active offer. Fails if the item is
// not owned by ownerID or is already reserved.
func (r *ItemRepo) Reserve(ctx context.Context, tx pgx.Tx, itemID, ownerID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE game_items SET is_reserved = TRUE, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND NOT is_reserved
	`, itemID, ownerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotOwned
	}
	return nil
}

// Unreserve releases the reservation on offer cancellation or expiry.
func (r *ItemRepo) Unreserve(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE game_items SET is_reserved = FALSE, updated_at = now() WHERE id = $1
	`, itemID)
	return err
}

// TransferOwner moves the item to the buyer and clears the reservation,
// consuming it in the same statement.
func (r *ItemRepo) TransferOwner(ctx context.Context, tx pgx.Tx, itemID, newOwnerID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE game_items SET owner_id = $2, is_reserved = FALSE, updated_at = now()
		WHERE id = $1 AND is_reserved
	`, itemID, newOwnerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotOwned
	}
	return nil
}
