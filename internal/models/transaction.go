package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MarketTxStatusPending   = "PENDING"
	MarketTxStatusCompleted = "COMPLETED"
	MarketTxStatusFailed    = "FAILED"
	MarketTxStatusCancelled = "CANCELLED"
)

// MarketTransaction is one buy attempt against an offer. BuyerID and
// SellerID are denormalized at creation time so the record survives the
// offer's later expiry or deletion. At most one PENDING or COMPLETED
// transaction may exist per offer (enforced by a partial unique index).
type MarketTransaction struct {
	ID          uuid.UUID  `json:"id"`
	OfferID     uuid.UUID  `json:"offer_id"`
	BuyerID     uuid.UUID  `json:"buyer_id"`
	SellerID    uuid.UUID  `json:"seller_id"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Terminal reports whether the transaction can no longer change state.
func (t *MarketTransaction) Terminal() bool {
	return t.Status != MarketTxStatusPending
}
