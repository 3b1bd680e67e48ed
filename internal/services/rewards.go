package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/ledger"
	"github.com/galaktika/backend/internal/models"
)

// ErrRewardAlreadyClaimed: the user already checked in today.
var ErrRewardAlreadyClaimed = errors.New("daily reward already claimed")

// RewardDay is one configured entry of the reward schedule: on streak
// day Day the user receives Amount of Resource.
type RewardDay struct {
	Day      int
	Resource string
	Amount   decimal.Decimal
}

// RewardCycleResult is the outcome of the pure cycle evaluation.
type RewardCycleResult struct {
	Due          bool
	EffectiveDay int
	Reward       *RewardDay
}

// EvaluateRewardCycle maps a streak counter onto a possibly sparse,
// unsorted reward schedule. The schedule is periodic with period
// max(day): streak positions beyond it wrap via
// ((streak-1) mod maxDay) + 1, so gaps in the schedule repeat every
// cycle. Pure function; claiming and granting are the caller's problem.
func EvaluateRewardCycle(currentStreak int, days []RewardDay) RewardCycleResult {
	if currentStreak < 1 || len(days) == 0 {
		return RewardCycleResult{}
	}
	maxDay := 0
	for _, d := range days {
		if d.Day > maxDay {
			maxDay = d.Day
		}
	}
	if maxDay < 1 {
		return RewardCycleResult{}
	}
	effective := currentStreak
	if effective > maxDay {
		effective = ((currentStreak - 1) % maxDay) + 1
	}
	for i := range days {
		if days[i].Day == effective {
			return RewardCycleResult{Due: true, EffectiveDay: effective, Reward: &days[i]}
		}
	}
	return RewardCycleResult{Due: false, EffectiveDay: effective}
}

// DefaultRewardSchedule is the stock 7-day stardust ramp used when no
// schedule is configured.
func DefaultRewardSchedule() []RewardDay {
	amounts := []int64{10, 20, 30, 40, 50, 75, 100}
	days := make([]RewardDay, len(amounts))
	for i, a := range amounts {
		days[i] = RewardDay{Day: i + 1, Resource: models.ResourceStardust, Amount: decimal.NewFromInt(a)}
	}
	return days
}

// UserStore is the user persistence surface the check-in drives.
type UserStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	UpdateStreak(ctx context.Context, tx pgx.Tx, id uuid.UUID, currentStreak, maxStreak int, lastLogin time.Time) error
}

// RewardCrediter credits granted rewards inside the check-in's tx.
type RewardCrediter interface {
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal) error
}

// CheckInResult reports the updated streak and any reward granted.
type CheckInResult struct {
	Streak    int        `json:"streak"`
	MaxStreak int        `json:"max_streak"`
	RewardDue bool       `json:"reward_due"`
	Reward    *RewardDay `json:"-"`
}

// CheckInService advances a user's daily streak and grants the cycled
// reward. The claim is idempotent per calendar day: the user row is
// locked and last_login_date compared under that lock, so a same-day
// re-invocation cannot double-grant.
type CheckInService struct {
	Pool         TxBeginner
	Users        UserStore
	Accounts     RewardCrediter
	Ledger       ledger.Service
	Schedule     []RewardDay
	ReferralRate decimal.Decimal

	now func() time.Time
}

func NewCheckInService(pool TxBeginner, users UserStore, accounts RewardCrediter, ledgerSvc ledger.Service, schedule []RewardDay, referralRate decimal.Decimal) *CheckInService {
	if len(schedule) == 0 {
		schedule = DefaultRewardSchedule()
	}
	return &CheckInService{
		Pool:         pool,
		Users:        users,
		Accounts:     accounts,
		Ledger:       ledgerSvc,
		Schedule:     schedule,
		ReferralRate: referralRate,
		now:          time.Now,
	}
}

// CheckIn records today's login, advances (or resets) the streak, and
// grants the scheduled reward if one is due.
func (s *CheckInService) CheckIn(ctx context.Context, userID uuid.UUID) (*CheckInResult, error) {
	today := dateOf(s.now())

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user, err := s.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsFrozen {
		return nil, ErrAccountFrozen
	}
	if user.LastLoginDate != nil && dateOf(*user.LastLoginDate).Equal(today) {
		return nil, ErrRewardAlreadyClaimed
	}

	streak := 1
	if user.LastLoginDate != nil && dateOf(*user.LastLoginDate).AddDate(0, 0, 1).Equal(today) {
		streak = user.CurrentStreak + 1
	}
	maxStreak := user.MaxStreak
	if streak > maxStreak {
		maxStreak = streak
	}
	if err := s.Users.UpdateStreak(ctx, tx, userID, streak, maxStreak, today); err != nil {
		return nil, err
	}

	result := &CheckInResult{Streak: streak, MaxStreak: maxStreak}
	cycle := EvaluateRewardCycle(streak, s.Schedule)
	if cycle.Due {
		result.RewardDue = true
		result.Reward = cycle.Reward
		if err := s.grant(ctx, tx, userID, cycle.Reward.Resource, cycle.Reward.Amount, models.PaymentDailyReward); err != nil {
			return nil, err
		}
		if user.ReferrerID != nil && s.ReferralRate.IsPositive() {
			bonus := cycle.Reward.Amount.Mul(s.ReferralRate).Round(9)
			if bonus.IsPositive() {
				if err := s.grant(ctx, tx, *user.ReferrerID, cycle.Reward.Resource, bonus, models.PaymentReferralBonus); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// grant credits the reward and appends its CONFIRMED ledger posting
// inside the check-in's unit of work.
func (s *CheckInService) grant(ctx context.Context, tx pgx.Tx, userID uuid.UUID, resource string, amount decimal.Decimal, txType string) error {
	if err := s.Accounts.Credit(ctx, tx, userID, resource, amount); err != nil {
		return err
	}
	p := &models.PaymentTransaction{
		FromAccount: models.SystemEscrowAccountID,
		ToAccount:   userID,
		Amount:      amount,
		Resource:    resource,
		TxType:      txType,
	}
	if err := s.Ledger.Record(ctx, tx, p); err != nil {
		return err
	}
	return s.Ledger.Confirm(ctx, tx, p.ID)
}

// dateOf truncates to a UTC calendar date.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
