package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

var (
	// ErrInvalidOffer: the listing input fails structural validation.
	ErrInvalidOffer = errors.New("invalid offer")
	// ErrNotSeller: a cancellation was attempted by someone other than
	// the offer's seller.
	ErrNotSeller = errors.New("offer does not belong to caller")
	// ErrOfferNotCancellable: the offer is no longer ACTIVE or already
	// has a non-terminal transaction attached.
	ErrOfferNotCancellable = errors.New("offer not cancellable")
)

// OfferStore is the offer persistence surface the service drives.
// Implemented by *Repository.
type OfferStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, o *models.MarketOffer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MarketOffer, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketOffer, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) (bool, error)
	ListActive(ctx context.Context, now time.Time, itemType, currency string, limit int) ([]*models.MarketOffer, error)
	ListExpiredForUpdate(ctx context.Context, tx pgx.Tx, now time.Time) ([]*models.MarketOffer, error)
}

// AccountLocker moves fungible amounts between the available and locked
// sub-balances of the seller's account.
type AccountLocker interface {
	Lock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
	Unlock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
}

// ItemReserver flags discrete items as backing an offer.
type ItemReserver interface {
	Reserve(ctx context.Context, tx pgx.Tx, itemID, ownerID uuid.UUID) error
	Unreserve(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error
}

// OpenTxChecker reports whether a non-terminal market transaction holds
// the offer. Queried inside the cancel transaction, after the offer row
// is locked, so the answer cannot go stale before commit.
type OpenTxChecker interface {
	HasOpen(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) (bool, error)
}

// CreateOfferInput describes a new listing. Fungible listings set
// Resource and Amount; discrete ones set ItemID.
type CreateOfferInput struct {
	ItemType  string
	ItemID    *uuid.UUID
	Resource  *string
	Amount    *decimal.Decimal
	Price     decimal.Decimal
	Currency  string
	OfferType string
	ExpiresAt *time.Time
}

type Service interface {
	CreateOffer(ctx context.Context, sellerID uuid.UUID, in CreateOfferInput) (*models.MarketOffer, error)
	CancelOffer(ctx context.Context, offerID, sellerID uuid.UUID) (*models.MarketOffer, error)
	ListActive(ctx context.Context, itemType, currency string, limit int) ([]*models.MarketOffer, error)
	ExpireOffers(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	offers   OfferStore
	accounts AccountLocker
	items    ItemReserver
	openTx   OpenTxChecker
	now      func() time.Time
}

func NewService(offers OfferStore, accounts AccountLocker, items ItemReserver, openTx OpenTxChecker) *service {
	return &service{offers: offers, accounts: accounts, items: items, openTx: openTx, now: time.Now}
}

var _ Service = (*service)(nil)

func (s *service) validate(in CreateOfferInput) error {
	if !models.KnownItemType(in.ItemType) {
		return fmt.Errorf("%w: unknown item type %q", ErrInvalidOffer, in.ItemType)
	}
	if !models.KnownResource(in.Currency) {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidOffer, in.Currency)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOffer)
	}
	switch in.OfferType {
	case models.OfferTypeSystem, models.OfferTypeP2P, models.OfferTypePersonal:
	default:
		return fmt.Errorf("%w: unknown offer type %q", ErrInvalidOffer, in.OfferType)
	}
	if in.ItemType == models.ItemTypeResource {
		if in.Resource == nil || in.Amount == nil || !in.Amount.IsPositive() {
			return fmt.Errorf("%w: resource listings need a resource and a positive amount", ErrInvalidOffer)
		}
		if !models.KnownResource(*in.Resource) {
			return fmt.Errorf("%w: unknown resource %q", ErrInvalidOffer, *in.Resource)
		}
	} else if in.ItemID == nil {
		return fmt.Errorf("%w: discrete listings need an item id", ErrInvalidOffer)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return fmt.Errorf("%w: expiry must be in the future", ErrInvalidOffer)
	}
	return nil
}

// CreateOffer reserves the listed resource or item and inserts the offer
// as ACTIVE, all in one unit of work. The reservation is what keeps the
// seller from spending or re-listing the same thing while the offer is
// open.
func (s *service) CreateOffer(ctx context.Context, sellerID uuid.UUID, in CreateOfferInput) (*models.MarketOffer, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	tx, err := s.offers.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	offer := &models.MarketOffer{
		ID:           uuid.New(),
		SellerID:     sellerID,
		ItemType:     in.ItemType,
		ItemID:       in.ItemID,
		Resource:     in.Resource,
		Amount:       in.Amount,
		Price:        in.Price,
		Currency:     in.Currency,
		Status:       models.OfferStatusActive,
		OfferType:    in.OfferType,
		ExpiresAt:    in.ExpiresAt,
		IsItemLocked: true,
	}

	if in.ItemType == models.ItemTypeResource {
		if err := s.accounts.Lock(ctx, tx, sellerID, *in.Resource, *in.Amount); err != nil {
			return nil, err
		}
	} else {
		if err := s.items.Reserve(ctx, tx, *in.ItemID, sellerID); err != nil {
			return nil, err
		}
	}
	if err := s.offers.Create(ctx, tx, offer); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return offer, nil
}

// CancelOffer reverses the reservation and marks the offer CANCELLED.
// Only the seller may cancel, only from ACTIVE, and only while no
// transaction holds the offer.
func (s *service) CancelOffer(ctx context.Context, offerID, sellerID uuid.UUID) (*models.MarketOffer, error) {
	tx, err := s.offers.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	offer, err := s.offers.GetByIDForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID != sellerID {
		return nil, ErrNotSeller
	}
	if offer.Status != models.OfferStatusActive {
		return nil, ErrOfferNotCancellable
	}
	// Checked with the offer row locked: a purchase that attached a
	// transaction before this point is visible here, and one arriving
	// later finds the offer CANCELLED at its own locked re-read.
	held, err := s.openTx.HasOpen(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, ErrOfferNotCancellable
	}

	if err := s.release(ctx, tx, offer); err != nil {
		return nil, err
	}
	ok, err := s.offers.UpdateStatus(ctx, tx, offer.ID, models.OfferStatusActive, models.OfferStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOfferNotCancellable
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	offer.Status = models.OfferStatusCancelled
	return offer, nil
}

// release reverses the reservation made at listing time.
func (s *service) release(ctx context.Context, tx pgx.Tx, offer *models.MarketOffer) error {
	if !offer.IsItemLocked {
		return nil
	}
	if offer.ItemType == models.ItemTypeResource {
		return s.accounts.Unlock(ctx, tx, offer.SellerID, *offer.Resource, *offer.Amount)
	}
	return s.items.Unreserve(ctx, tx, *offer.ItemID)
}

func (s *service) ListActive(ctx context.Context, itemType, currency string, limit int) ([]*models.MarketOffer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.offers.ListActive(ctx, s.now(), itemType, currency, limit)
}

// ExpireOffers sweeps every ACTIVE offer past its deadline, reversing
// the reservation and marking it EXPIRED. Running the sweep twice with
// the same now is a no-op the second time: the first pass left nothing
// ACTIVE to find.
func (s *service) ExpireOffers(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.offers.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	expired, err := s.offers.ListExpiredForUpdate(ctx, tx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, offer := range expired {
		if err := s.release(ctx, tx, offer); err != nil {
			return 0, fmt.Errorf("release offer %s: %w", offer.ID, err)
		}
		ok, err := s.offers.UpdateStatus(ctx, tx, offer.ID, models.OfferStatusActive, models.OfferStatusExpired)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}
