package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/ledger"
	"github.com/galaktika/backend/internal/models"
)

// ErrAccountFrozen: the account was frozen after a reconciliation
// mismatch; all balance mutations are refused until operators clear it.
var ErrAccountFrozen = errors.New("account frozen pending review")

// ErrInvalidAmount: a grant or spend with a non-positive amount.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrExternalResource: external payment tokens enter accounts only
// through real payments, never through in-game grants.
var ErrExternalResource = errors.New("cannot grant external payment tokens")

// BalanceStore extends AccountStore with the lock/read operations the
// account surface exposes to collaborators.
type BalanceStore interface {
	AccountStore
	Lock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
	Unlock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
	GetBalance(ctx context.Context, userID uuid.UUID, resource string) (*models.ResourceBalance, error)
	ListBalances(ctx context.Context, userID uuid.UUID) ([]*models.ResourceBalance, error)
}

// UserGetter reads the user row for the frozen check.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AccountService is the Resource Account surface consumed by upgrade
// purchases, task/event rewards and the daily check-in. Every mutation
// goes through the ledger; presentation code never touches balances
// directly.
type AccountService struct {
	Pool     TxBeginner
	Accounts BalanceStore
	Users    UserGetter
	Ledger   ledger.Service
}

func NewAccountService(pool TxBeginner, accounts BalanceStore, users UserGetter, ledgerSvc ledger.Service) *AccountService {
	return &AccountService{Pool: pool, Accounts: accounts, Users: users, Ledger: ledgerSvc}
}

func (s *AccountService) GetBalance(ctx context.Context, userID uuid.UUID, resource string) (*models.ResourceBalance, error) {
	return s.Accounts.GetBalance(ctx, userID, resource)
}

func (s *AccountService) ListBalances(ctx context.Context, userID uuid.UUID) ([]*models.ResourceBalance, error) {
	return s.Accounts.ListBalances(ctx, userID)
}

// Grant credits a reward to the user and appends a CONFIRMED ledger
// posting from the system escrow account, atomically.
func (s *AccountService) Grant(ctx context.Context, userID uuid.UUID, resource string, amount decimal.Decimal, txType string) (*models.PaymentTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if models.PaymentTokens[resource] {
		return nil, ErrExternalResource
	}
	if err := s.checkNotFrozen(ctx, userID); err != nil {
		return nil, err
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Accounts.Credit(ctx, tx, userID, resource, amount); err != nil {
		return nil, err
	}
	p := &models.PaymentTransaction{
		FromAccount: models.SystemEscrowAccountID,
		ToAccount:   userID,
		Amount:      amount,
		Resource:    resource,
		TxType:      txType,
	}
	if err := s.Ledger.Record(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.Ledger.Confirm(ctx, tx, p.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatusConfirmed
	return p, nil
}

// Spend debits the user and appends a CONFIRMED posting to the system
// escrow account. Used by upgrade purchases.
func (s *AccountService) Spend(ctx context.Context, userID uuid.UUID, resource string, amount decimal.Decimal, txType string) (*models.PaymentTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := s.checkNotFrozen(ctx, userID); err != nil {
		return nil, err
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Accounts.Debit(ctx, tx, userID, resource, amount); err != nil {
		return nil, err
	}
	p := &models.PaymentTransaction{
		FromAccount: userID,
		ToAccount:   models.SystemEscrowAccountID,
		Amount:      amount,
		Resource:    resource,
		TxType:      txType,
	}
	if err := s.Ledger.Record(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.Ledger.Confirm(ctx, tx, p.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatusConfirmed
	return p, nil
}

func (s *AccountService) checkNotFrozen(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsFrozen {
		return ErrAccountFrozen
	}
	return nil
}
