package models

import (
	"time"

	"github.com/google/uuid"
)

// Well-known system accounts. The escrow account holds funds in flight
// between buyer and seller; the fee account accumulates commissions.
var (
	SystemEscrowAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	SystemFeeAccountID    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

type User struct {
	ID            uuid.UUID  `json:"id"`
	TelegramID    int64      `json:"telegram_id"`
	Username      string     `json:"username"`
	ReferrerID    *uuid.UUID `json:"referrer_id,omitempty"`
	CurrentStreak int        `json:"current_streak"`
	MaxStreak     int        `json:"max_streak"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`
	IsFrozen      bool       `json:"is_frozen"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
