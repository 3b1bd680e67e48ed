package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galaktika/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, telegram_id, username, referrer_id, current_streak, max_streak, last_login_date, is_frozen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, u.ID, u.TelegramID, u.Username, u.ReferrerID, u.CurrentStreak, u.MaxStreak, u.LastLoginDate, u.IsFrozen).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, telegram_id, username, referrer_id, current_streak, max_streak, last_login_date, is_frozen, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.TelegramID, &u.Username, &u.ReferrerID, &u.CurrentStreak, &u.MaxStreak, &u.LastLoginDate, &u.IsFrozen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, telegram_id, username, referrer_id, current_streak, max_streak, last_login_date, is_frozen, created_at, updated_at
		FROM users WHERE telegram_id = $1
	`, telegramID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.ReferrerID, &u.CurrentStreak, &u.MaxStreak, &u.LastLoginDate, &u.IsFrozen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDForUpdate locks the user row. Call within a transaction; the
// daily check-in uses it so two claims for the same day serialize.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := tx.QueryRow(ctx, `
		SELECT id, telegram_id, username, referrer_id, current_streak, max_streak, last_login_date, is_frozen, created_at, updated_at
		FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&u.ID, &u.TelegramID, &u.Username, &u.ReferrerID, &u.CurrentStreak, &u.MaxStreak, &u.LastLoginDate, &u.IsFrozen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateStreak writes the new streak counters and the claim date. Call
// after GetByIDForUpdate in the same tx.
func (r *UserRepo) UpdateStreak(ctx context.Context, tx pgx.Tx, id uuid.UUID, currentStreak, maxStreak int, lastLogin time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET current_streak = $2, max_streak = $3, last_login_date = $4, updated_at = now()
		WHERE id = $1
	`, id, currentStreak, maxStreak, lastLogin)
	return err
}

// SetFrozen halts (or resumes) writes for the account. Set by the
// reconciliation check on a ledger/balance mismatch.
func (r *UserRepo) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET is_frozen = $2, updated_at = now() WHERE id = $1
	`, id, frozen)
	return err
}
