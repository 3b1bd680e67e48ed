package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketCommission maps a currency to its fee fraction in [0,1).
// Read-only at purchase time; a missing row is a hard failure unless the
// orchestrator is configured to treat it as zero.
type MarketCommission struct {
	Currency  string          `json:"currency"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}
