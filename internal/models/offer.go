package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer lifecycle: ACTIVE is the only non-terminal state.
const (
	OfferStatusActive    = "ACTIVE"
	OfferStatusCompleted = "COMPLETED"
	OfferStatusCancelled = "CANCELLED"
	OfferStatusExpired   = "EXPIRED"
)

const (
	OfferTypeSystem   = "SYSTEM"
	OfferTypeP2P      = "P2P"
	OfferTypePersonal = "PERSONAL"
)

// MarketOffer is a fixed-price sell listing. Discrete listings set ItemID;
// fungible ones set Resource + Amount. SellerID is the account whose
// reservation backs the offer while it is ACTIVE.
type MarketOffer struct {
	ID           uuid.UUID        `json:"id"`
	SellerID     uuid.UUID        `json:"seller_id"`
	ItemType     string           `json:"item_type"`
	ItemID       *uuid.UUID       `json:"item_id,omitempty"`
	Resource     *string          `json:"resource,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	Currency     string           `json:"currency"`
	Status       string           `json:"status"`
	OfferType    string           `json:"offer_type"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	IsItemLocked bool             `json:"is_item_locked"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Expired reports whether the offer's deadline has passed at now.
// Offers without a deadline never expire.
func (o *MarketOffer) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && o.ExpiresAt.Before(now)
}
