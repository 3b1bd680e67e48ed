package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaktika/backend/internal/models"
)

// ---------------------------------------------------------------------------
// EvaluateRewardCycle: pure-function tests.
// ---------------------------------------------------------------------------

func denseSchedule(maxDay int) []RewardDay {
	days := make([]RewardDay, maxDay)
	for i := range days {
		days[i] = RewardDay{Day: i + 1, Resource: models.ResourceStardust, Amount: decimal.NewFromInt(int64(10 * (i + 1)))}
	}
	return days
}

func TestEvaluateRewardCycle_DenseSchedule(t *testing.T) {
	schedule := denseSchedule(7)

	// Inside the first cycle the effective day is the streak itself.
	for streak := 1; streak <= 7; streak++ {
		res := EvaluateRewardCycle(streak, schedule)
		require.True(t, res.Due, "streak %d", streak)
		assert.Equal(t, streak, res.EffectiveDay, "streak %d", streak)
		assert.True(t, res.Reward.Amount.Equal(decimal.NewFromInt(int64(10*streak))), "streak %d", streak)
	}

	// Beyond it the schedule repeats with period 7: streak 8 pays day 1,
	// streak 14 pays day 7, streak 15 wraps to day 1 again.
	cases := map[int]int{8: 1, 9: 2, 14: 7, 15: 1, 21: 7, 22: 1, 700: 7}
	for streak, wantDay := range cases {
		res := EvaluateRewardCycle(streak, schedule)
		require.True(t, res.Due, "streak %d", streak)
		assert.Equal(t, wantDay, res.EffectiveDay, "streak %d", streak)
	}
}

func TestEvaluateRewardCycle_SparseSchedule(t *testing.T) {
	// Only days 3 and 15 pay; period is max(day) = 15.
	schedule := []RewardDay{
		{Day: 15, Resource: models.ResourceDarkMatter, Amount: decimal.NewFromInt(5)},
		{Day: 3, Resource: models.ResourceStardust, Amount: decimal.NewFromInt(30)},
	}

	due := map[int]int{3: 3, 15: 15, 18: 3, 30: 15, 33: 3, 45: 15}
	for streak, wantDay := range due {
		res := EvaluateRewardCycle(streak, schedule)
		require.True(t, res.Due, "streak %d", streak)
		assert.Equal(t, wantDay, res.EffectiveDay, "streak %d", streak)
	}

	for _, streak := range []int{1, 2, 4, 14, 16, 17, 31} {
		res := EvaluateRewardCycle(streak, schedule)
		assert.False(t, res.Due, "streak %d", streak)
		assert.Nil(t, res.Reward, "streak %d", streak)
	}

	// Gap days still report where in the cycle the streak landed.
	assert.Equal(t, 1, EvaluateRewardCycle(16, schedule).EffectiveDay)
	assert.Equal(t, 14, EvaluateRewardCycle(29, schedule).EffectiveDay)
}

func TestEvaluateRewardCycle_Degenerate(t *testing.T) {
	assert.False(t, EvaluateRewardCycle(0, denseSchedule(7)).Due)
	assert.False(t, EvaluateRewardCycle(-3, denseSchedule(7)).Due)
	assert.False(t, EvaluateRewardCycle(5, nil).Due)
	assert.False(t, EvaluateRewardCycle(5, []RewardDay{{Day: 0}}).Due)
}

// ---------------------------------------------------------------------------
// CheckIn: streak bookkeeping and reward granting against mocks.
// ---------------------------------------------------------------------------

type mockUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockUsers(users ...*models.User) *mockUsers {
	m := &mockUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockUsers) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) UpdateStreak(_ context.Context, _ pgx.Tx, id uuid.UUID, currentStreak, maxStreak int, lastLogin time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.CurrentStreak = currentStreak
	u.MaxStreak = maxStreak
	u.LastLoginDate = &lastLogin
	return nil
}

func (m *mockUsers) get(id uuid.UUID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[id]
	return &cp
}

func testCheckInService(users *mockUsers, accounts *mockAccounts, led *mockLedger, at time.Time) *CheckInService {
	svc := NewCheckInService(mockPool{}, users, accounts, led, nil, decimal.Zero)
	svc.now = func() time.Time { return at }
	return svc
}

func TestCheckInStreakAdvancesAndResets(t *testing.T) {
	userID := uuid.New()
	day := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	yesterday := day.AddDate(0, 0, -1)
	users := newMockUsers(&models.User{ID: userID, CurrentStreak: 3, MaxStreak: 5, LastLoginDate: &yesterday})
	accounts := newMockAccounts()
	led := &mockLedger{}

	// Consecutive day: streak advances.
	svc := testCheckInService(users, accounts, led, day)
	res, err := svc.CheckIn(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Streak)
	assert.Equal(t, 5, res.MaxStreak)
	assert.True(t, res.RewardDue)
	assert.True(t, accounts.get(userID, models.ResourceStardust).Available.Equal(decimal.NewFromInt(40)))

	// Same day again: rejected, nothing granted twice.
	if _, err := svc.CheckIn(context.Background(), userID); err != ErrRewardAlreadyClaimed {
		t.Fatalf("expected ErrRewardAlreadyClaimed, got: %v", err)
	}
	assert.True(t, accounts.get(userID, models.ResourceStardust).Available.Equal(decimal.NewFromInt(40)))

	// Two days later: the gap resets the streak to 1 but max survives.
	svc = testCheckInService(users, accounts, led, day.AddDate(0, 0, 2))
	res, err = svc.CheckIn(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 5, res.MaxStreak)
	assert.Equal(t, 1, users.get(userID).CurrentStreak)
}

func TestCheckInFirstLogin(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID})
	accounts := newMockAccounts()
	led := &mockLedger{}

	svc := testCheckInService(users, accounts, led, time.Date(2026, 3, 10, 0, 0, 1, 0, time.UTC))
	res, err := svc.CheckIn(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 1, res.MaxStreak)

	// Day-1 reward posted as a confirmed DAILY_REWARD ledger entry.
	grants := led.confirmedByType(models.PaymentDailyReward)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, userID, grants[0].ToAccount)
	assert.Equal(t, models.SystemEscrowAccountID, grants[0].FromAccount)
}

func TestCheckInReferralBonus(t *testing.T) {
	referrer := uuid.New()
	userID := uuid.New()
	users := newMockUsers(
		&models.User{ID: referrer},
		&models.User{ID: userID, ReferrerID: &referrer},
	)
	accounts := newMockAccounts()
	led := &mockLedger{}

	svc := testCheckInService(users, accounts, led, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc.ReferralRate = decimal.NewFromFloat(0.10)

	_, err := svc.CheckIn(context.Background(), userID)
	require.NoError(t, err)

	// Day-1 reward is 10 stardust; the referrer gets 10% of it.
	bonuses := led.confirmedByType(models.PaymentReferralBonus)
	require.Len(t, bonuses, 1)
	assert.Equal(t, referrer, bonuses[0].ToAccount)
	assert.True(t, bonuses[0].Amount.Equal(decimal.NewFromInt(1)))
	assert.True(t, accounts.get(referrer, models.ResourceStardust).Available.Equal(decimal.NewFromInt(1)))
}

func TestCheckInFrozenAccount(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID, IsFrozen: true})

	svc := testCheckInService(users, newMockAccounts(), &mockLedger{}, time.Now())
	if _, err := svc.CheckIn(context.Background(), userID); err != ErrAccountFrozen {
		t.Fatalf("expected ErrAccountFrozen, got: %v", err)
	}
}
