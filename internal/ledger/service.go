package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

// ErrConsistencyViolation means the sum of CONFIRMED postings no longer
// matches the account's stored balance. The account is frozen and the
// error surfaced to operators; it must not be retried automatically.
var ErrConsistencyViolation = errors.New("ledger/balance consistency violation")

// ErrAlreadyAttached means the posting already carries a chain
// transaction id. Attachment is first-write-wins; callers treat this as
// terminal, not retryable.
var ErrAlreadyAttached = errors.New("chain transaction id already attached")

// BalanceReader reads the stored available/locked pair for one resource.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID, resource string) (*models.ResourceBalance, error)
}

// AccountFreezer halts further writes to a corrupted account.
type AccountFreezer interface {
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error
}

// Store is the posting persistence surface the service drives.
// Implemented by *Repository.
type Store interface {
	Record(ctx context.Context, tx pgx.Tx, p *models.PaymentTransaction) error
	Confirm(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ConfirmByMarketTx(ctx context.Context, tx pgx.Tx, marketTxID uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID) error
	AttachChainTx(ctx context.Context, id uuid.UUID, chainTxID string) error
	SumConfirmed(ctx context.Context, accountID uuid.UUID, resource string) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.PaymentTransaction, error)
}

var _ Store = (*Repository)(nil)

type Service interface {
	Record(ctx context.Context, tx pgx.Tx, p *models.PaymentTransaction) error
	Confirm(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ConfirmMarket(ctx context.Context, tx pgx.Tx, marketTxID uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID) error
	AttachChainTx(ctx context.Context, id uuid.UUID, chainTxID string) error
	Reconcile(ctx context.Context, userID uuid.UUID, resource string) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.PaymentTransaction, error)
}

type service struct {
	repo     Store
	balances BalanceReader
	freezer  AccountFreezer
	logger   *slog.Logger
}

func NewService(repo Store, balances BalanceReader, freezer AccountFreezer, logger *slog.Logger) Service {
	return &service{repo: repo, balances: balances, freezer: freezer, logger: logger}
}

var _ Service = (*service)(nil)

func (s *service) Record(ctx context.Context, tx pgx.Tx, p *models.PaymentTransaction) error {
	return s.repo.Record(ctx, tx, p)
}

func (s *service) Confirm(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	return s.repo.Confirm(ctx, tx, id)
}

func (s *service) ConfirmMarket(ctx context.Context, tx pgx.Tx, marketTxID uuid.UUID) error {
	return s.repo.ConfirmByMarketTx(ctx, tx, marketTxID)
}

func (s *service) Fail(ctx context.Context, id uuid.UUID) error {
	return s.repo.Fail(ctx, id)
}

func (s *service) AttachChainTx(ctx context.Context, id uuid.UUID, chainTxID string) error {
	return s.repo.AttachChainTx(ctx, id, chainTxID)
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.PaymentTransaction, error) {
	return s.repo.ListByAccount(ctx, accountID, limit)
}

// Reconcile checks that available+locked equals the net of CONFIRMED
// postings for the account/resource. On mismatch the account is frozen
// and ErrConsistencyViolation returned.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, resource string) error {
	bal, err := s.balances.GetBalance(ctx, userID, resource)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	posted, err := s.repo.SumConfirmed(ctx, userID, resource)
	if err != nil {
		return fmt.Errorf("sum postings: %w", err)
	}
	total := bal.Available.Add(bal.Locked)
	if total.Equal(posted) {
		return nil
	}
	s.logger.Error("ledger reconciliation mismatch, freezing account",
		"user_id", userID, "resource", resource,
		"balance_total", total.String(), "ledger_sum", posted.String())
	if err := s.freezer.SetFrozen(ctx, userID, true); err != nil {
		return fmt.Errorf("freeze account after mismatch: %w", err)
	}
	return fmt.Errorf("%w: account %s resource %s balance %s vs postings %s",
		ErrConsistencyViolation, userID, resource, total.String(), posted.String())
}
