package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/models"
)

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

// mockBalanceStore widens mockAccounts to the full BalanceStore surface.
type mockBalanceStore struct {
	*mockAccounts
}

func (m *mockBalanceStore) Lock(_ context.Context, _ pgx.Tx, user uuid.UUID, resource string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.row(user, resource)
	if b.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.Available = b.Available.Sub(amount)
	b.Locked = b.Locked.Add(amount)
	return nil
}

func (m *mockBalanceStore) Unlock(_ context.Context, _ pgx.Tx, user uuid.UUID, resource string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.row(user, resource)
	if b.Locked.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.Locked = b.Locked.Sub(amount)
	b.Available = b.Available.Add(amount)
	return nil
}

func (m *mockBalanceStore) GetBalance(_ context.Context, user uuid.UUID, resource string) (*models.ResourceBalance, error) {
	return m.get(user, resource), nil
}

func (m *mockBalanceStore) ListBalances(_ context.Context, user uuid.UUID) ([]*models.ResourceBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ResourceBalance
	for k, b := range m.balances {
		if k.user == user {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestGrantAndSpend(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID})
	accounts := &mockBalanceStore{newMockAccounts()}
	led := &mockLedger{}
	svc := NewAccountService(mockPool{}, accounts, users, led)

	ctx := context.Background()

	p, err := svc.Grant(ctx, userID, models.ResourceStardust, dec("150"), models.PaymentTaskReward)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if p.Status != models.PaymentStatusConfirmed {
		t.Errorf("grant posting status: got %s, want %s", p.Status, models.PaymentStatusConfirmed)
	}
	if got := accounts.get(userID, models.ResourceStardust).Available; !got.Equal(dec("150")) {
		t.Errorf("balance after grant: got %s, want 150", got)
	}

	if _, err := svc.Spend(ctx, userID, models.ResourceStardust, dec("60"), models.PaymentUpgradePurchase); err != nil {
		t.Fatalf("Spend: %v", err)
	}
	if got := accounts.get(userID, models.ResourceStardust).Available; !got.Equal(dec("90")) {
		t.Errorf("balance after spend: got %s, want 90", got)
	}

	// Overspend refused, balance untouched.
	if _, err := svc.Spend(ctx, userID, models.ResourceStardust, dec("1000"), models.PaymentUpgradePurchase); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
	}
	if got := accounts.get(userID, models.ResourceStardust).Available; !got.Equal(dec("90")) {
		t.Errorf("balance after refused spend: got %s, want 90", got)
	}

	// Each mutation carries a confirmed posting.
	if n := led.confirmedCount(); n != 2 {
		t.Errorf("confirmed postings: got %d, want 2", n)
	}
	spends := led.confirmedByType(models.PaymentUpgradePurchase)
	if len(spends) != 1 || spends[0].ToAccount != models.SystemEscrowAccountID {
		t.Errorf("spend posting: got %+v", spends)
	}
}

func TestGrantValidation(t *testing.T) {
	userID := uuid.New()
	frozenID := uuid.New()
	users := newMockUsers(
		&models.User{ID: userID},
		&models.User{ID: frozenID, IsFrozen: true},
	)
	svc := NewAccountService(mockPool{}, &mockBalanceStore{newMockAccounts()}, users, &mockLedger{})

	ctx := context.Background()

	if _, err := svc.Grant(ctx, userID, models.ResourceStardust, decimal.Zero, models.PaymentTaskReward); err != ErrInvalidAmount {
		t.Errorf("zero amount: expected ErrInvalidAmount, got: %v", err)
	}
	if _, err := svc.Grant(ctx, userID, models.ResourceStardust, dec("-5"), models.PaymentTaskReward); err != ErrInvalidAmount {
		t.Errorf("negative amount: expected ErrInvalidAmount, got: %v", err)
	}
	if _, err := svc.Grant(ctx, frozenID, models.ResourceStardust, dec("5"), models.PaymentTaskReward); err != ErrAccountFrozen {
		t.Errorf("frozen account: expected ErrAccountFrozen, got: %v", err)
	}
	// Externally settled tokens cannot be minted in-game.
	for _, token := range []string{models.ResourceTgStars, models.ResourceTon} {
		if _, err := svc.Grant(ctx, userID, token, dec("5"), models.PaymentTaskReward); err != ErrExternalResource {
			t.Errorf("%s grant: expected ErrExternalResource, got: %v", token, err)
		}
	}
	if _, err := svc.Spend(ctx, frozenID, models.ResourceStardust, dec("5"), models.PaymentUpgradePurchase); err != ErrAccountFrozen {
		t.Errorf("frozen account spend: expected ErrAccountFrozen, got: %v", err)
	}
}
