package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/ledger"
	"github.com/galaktika/backend/internal/models"
	"github.com/galaktika/backend/internal/repository"
)

// Re-exported so callers don't reach into the repository package.
var (
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrOfferUnavailable  = repository.ErrOfferUnavailable
	ErrItemNotOwned      = repository.ErrItemNotOwned
)

// ErrUnknownCommissionRate is returned when the offer currency has no
// commission row and the service is not configured to default to zero.
// A silent zero would leak unaudited fees.
var ErrUnknownCommissionRate = errors.New("no commission rate configured for currency")

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PurchaseOfferStore is the offer surface the orchestrator needs.
type PurchaseOfferStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MarketOffer, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketOffer, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) (bool, error)
}

// PurchaseTxStore persists the per-attempt market transaction.
type PurchaseTxStore interface {
	CreatePending(ctx context.Context, offerID, buyerID, sellerID uuid.UUID) (*models.MarketTransaction, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// AccountStore is the resource account surface used by purchases.
type AccountStore interface {
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
	SettleLocked(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
}

// ItemTransferrer moves a reserved item to its buyer.
type ItemTransferrer interface {
	TransferOwner(ctx context.Context, tx pgx.Tx, itemID, newOwnerID uuid.UUID) error
}

// RateSource looks up the commission fraction for a currency.
// pgx.ErrNoRows means no rate is configured.
type RateSource interface {
	GetRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

/// MarketService drives a buy request through the fixed posting sequence:
// buyer debit, escrow leg, reservation settlement, seller credit, fee,
// item transfer — all in one unit of work that either commits whole or
// leaves nothing behind.
type MarketService struct {
	Pool      TxBeginner
	Offers    PurchaseOfferStore
	MarketTxs PurchaseTxStore
	Accounts  AccountStore
	Items     ItemTransferrer
	Ledger    ledger.Service
	Rates     RateSource
	// AllowMissingCommission opts into zero fee for unconfigured
	// currencies instead of failing the purchase.
	AllowMissingCommission bool
	Logger                 *slog.Logger

	now func() time.Time
}

func NewMarketService(
	pool TxBeginner,
	offers PurchaseOfferStore,
	marketTxs PurchaseTxStore,
	accounts AccountStore,
	items ItemTransferrer,
	ledgerSvc ledger.Service,
	rates RateSource,
	allowMissingCommission bool,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		Pool:                   pool,
		Offers:                 offers,
		MarketTxs:              marketTxs,
		Accounts:               accounts,
		Items:                  items,
		Ledger:                 ledgerSvc,
		Rates:                  rates,
		AllowMissingCommission: allowMissingCommission,
		Logger:                 logger,
		now:                    time.Now,
	}
}

// Purchase executes a buy request against an active offer. Exactly one
// of any set of concurrent attempts succeeds; the rest fail with
// ErrOfferUnavailable at the PENDING-insert gate.
func (s *MarketService) Purchase(ctx context.Context, offerID, buyerID uuid.UUID) (*models.MarketTransaction, error) {
	offer, err := s.Offers.GetByID(ctx, offerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOfferUnavailable
		}
		return nil, err
	}
	now := s.now()
	if offer.Status != models.OfferStatusActive || offer.Expired(now) {
		return nil, ErrOfferUnavailable
	}

	rate, err := s.commissionRate(ctx, offer.Currency)
	if err != nil {
		return nil, err
	}
	fee := offer.Price.Mul(rate).Round(9)
	sellerNet := offer.Price.Sub(fee)

	// The PENDING row is durable on its own: if the postings below roll
	// back, the attempt is still recorded and flipped to FAILED.
	mtx, err := s.MarketTxs.CreatePending(ctx, offer.ID, buyerID, offer.SellerID)
	if err != nil {
		return nil, err
	}

	if err := s.settle(ctx, mtx, offer, buyerID, fee, sellerNet); err != nil {
		if failErr := s.MarketTxs.MarkFailed(ctx, mtx.ID); failErr != nil {
			s.Logger.Error("mark market transaction failed", "market_tx_id", mtx.ID, "error", failErr)
		}
		mtx.Status = models.MarketTxStatusFailed
		return mtx, err
	}

	completedAt := s.now()
	mtx.Status = models.MarketTxStatusCompleted
	mtx.CompletedAt = &completedAt
	return mtx, nil
}

// settle is the atomic unit of work: every posting in here commits
// together or not at all. The ledger rows it inserts start PENDING and
// are flipped to CONFIRMED as the unit's last write, so no other session
// ever observes a partial trade.
func (s *MarketService) settle(ctx context.Context, mtx *models.MarketTransaction, offer *models.MarketOffer, buyerID uuid.UUID, fee, sellerNet decimal.Decimal) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Re-read under lock: the offer may have been cancelled or expired
	// between the first read and here.
	locked, err := s.Offers.GetByIDForUpdate(ctx, tx, offer.ID)
	if err != nil {
		return err
	}
	if locked.Status != models.OfferStatusActive || locked.Expired(s.now()) {
		return ErrOfferUnavailable
	}

	// 4a/4b: charge the buyer and post the escrow leg.
	if err := s.Accounts.Debit(ctx, tx, buyerID, offer.Currency, offer.Price); err != nil {
		return err
	}
	if err := s.Ledger.Record(ctx, tx, &models.PaymentTransaction{
		MarketTxID:  &mtx.ID,
		FromAccount: buyerID,
		ToAccount:   models.SystemEscrowAccountID,
		Amount:      offer.Price,
		Resource:    offer.Currency,
		TxType:      models.PaymentBuyerToContract,
	}); err != nil {
		return err
	}

	// 4c: consume the seller's reservation.
	if offer.ItemType == models.ItemTypeResource {
		if err := s.Accounts.SettleLocked(ctx, tx, offer.SellerID, *offer.Resource, *offer.Amount); err != nil {
			return err
		}
	}

	// 4d: pay the seller.
	if err := s.Accounts.Credit(ctx, tx, offer.SellerID, offer.Currency, sellerNet); err != nil {
		return err
	}
	if err := s.Ledger.Record(ctx, tx, &models.PaymentTransaction{
		MarketTxID:  &mtx.ID,
		FromAccount: models.SystemEscrowAccountID,
		ToAccount:   offer.SellerID,
		Amount:      sellerNet,
		Resource:    offer.Currency,
		TxType:      models.PaymentContractToSeller,
	}); err != nil {
		return err
	}

	// 4e: fee, only when non-zero.
	if fee.IsPositive() {
		if err := s.Accounts.Credit(ctx, tx, models.SystemFeeAccountID, offer.Currency, fee); err != nil {
			return err
		}
		if err := s.Ledger.Record(ctx, tx, &models.PaymentTransaction{
			MarketTxID:  &mtx.ID,
			FromAccount: models.SystemEscrowAccountID,
			ToAccount:   models.SystemFeeAccountID,
			Amount:      fee,
			Resource:    offer.Currency,
			TxType:      models.PaymentFee,
		}); err != nil {
			return err
		}
	}

	// 4f: hand the goods to the buyer.
	if offer.ItemType == models.ItemTypeResource {
		if err := s.Accounts.Credit(ctx, tx, buyerID, *offer.Resource, *offer.Amount); err != nil {
			return err
		}
		if err := s.Ledger.Record(ctx, tx, &models.PaymentTransaction{
			MarketTxID:  &mtx.ID,
			FromAccount: offer.SellerID,
			ToAccount:   buyerID,
			Amount:      *offer.Amount,
			Resource:    *offer.Resource,
			TxType:      models.PaymentResourceTransfer,
		}); err != nil {
			return err
		}
	} else {
		if err := s.Items.TransferOwner(ctx, tx, *offer.ItemID, buyerID); err != nil {
			return err
		}
	}

	// 4g: terminal states plus the CONFIRMED flip, then commit.
	if err := s.MarketTxs.MarkCompleted(ctx, tx, mtx.ID, s.now()); err != nil {
		return err
	}
	ok, err := s.Offers.UpdateStatus(ctx, tx, offer.ID, models.OfferStatusActive, models.OfferStatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferUnavailable
	}
	if err := s.Ledger.ConfirmMarket(ctx, tx, mtx.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *MarketService) commissionRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	rate, err := s.Rates.GetRate(ctx, currency)
	if err == pgx.ErrNoRows {
		if s.AllowMissingCommission {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCommissionRate, currency)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}
