package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Resource kinds: in-game currencies plus external payment tokens.
const (
	ResourceStardust   = "stardust"
	ResourceDarkMatter = "dark_matter"
	ResourceStars      = "stars"
	ResourceTgStars    = "tg_stars"
	ResourceTon        = "ton"
)

// PaymentTokens are the externally settled resources. They may price
// offers like any in-game currency, but they cannot be minted by grants:
// they enter accounts only through real payments.
var PaymentTokens = map[string]bool{
	ResourceTgStars: true,
	ResourceTon:     true,
}

func KnownResource(kind string) bool {
	switch kind {
	case ResourceStardust, ResourceDarkMatter, ResourceStars, ResourceTgStars, ResourceTon:
		return true
	}
	return false
}

// ResourceBalance is one row of resource_accounts: the available/locked
// split of a single resource for a single user. Available and Locked are
// disjoint; their sum is the user's total holding of that resource.
type ResourceBalance struct {
	UserID    uuid.UUID       `json:"user_id"`
	Resource  string          `json:"resource"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
	UpdatedAt time.Time       `json:"updated_at"`
}
