package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment tx_type enums. The first three are the legs of a market trade;
// the rest are direct grants posted outside the escrow flow.
const (
	PaymentBuyerToContract  = "BUYER_TO_CONTRACT"
	PaymentContractToSeller = "CONTRACT_TO_SELLER"
	PaymentFee              = "FEE"
	PaymentResourceTransfer = "RESOURCE_TRANSFER"
	PaymentDailyReward      = "DAILY_REWARD"
	PaymentTaskReward       = "TASK_REWARD"
	PaymentEventReward      = "EVENT_REWARD"
	PaymentUpgradePurchase  = "UPGRADE_PURCHASE"
	PaymentReferralBonus    = "REFERRAL_BONUS"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusConfirmed = "CONFIRMED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCancelled = "CANCELLED"
)

// PaymentTransaction is one append-only ledger posting. Rows are never
// mutated after creation except Status (PENDING → CONFIRMED/FAILED once)
// and the late attachment of BlockchainTxID for external-token legs.
type PaymentTransaction struct {
	ID             uuid.UUID       `json:"id"`
	MarketTxID     *uuid.UUID      `json:"market_tx_id,omitempty"`
	FromAccount    uuid.UUID       `json:"from_account"`
	ToAccount      uuid.UUID       `json:"to_account"`
	Amount         decimal.Decimal `json:"amount"`
	Resource       string          `json:"resource"`
	TxType         string          `json:"tx_type"`
	BlockchainTxID *string         `json:"blockchain_tx_id,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}
