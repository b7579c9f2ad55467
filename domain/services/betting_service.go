package services

import (
	"context"
	"fmt"
	"time"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"
	"teenpatti/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// StakeLimits bounds a single stake, inclusive on both ends
type StakeLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Validate checks that stake is positive, in cents and within bounds
func (l StakeLimits) Validate(stake decimal.Decimal) error {
	if !stake.IsPositive() {
		return entities.WrapBetError(entities.ErrCodeInvalidStake, "stake must be positive", nil)
	}
	if !stake.Equal(stake.Round(entities.MoneyPlaces)) {
		return entities.WrapBetError(entities.ErrCodeInvalidStake, "stake must have at most two decimal places", nil)
	}
	if stake.LessThan(l.Min) || stake.GreaterThan(l.Max) {
		return entities.WrapBetError(entities.ErrCodeInvalidStake,
			fmt.Sprintf("stake must be between %s and %s", l.Min.StringFixed(entities.MoneyPlaces), l.Max.StringFixed(entities.MoneyPlaces)), nil)
	}
	return nil
}

type bettingService struct {
	userRepo           interfaces.UserRepository
	roundRepo          interfaces.RoundRepository
	betRepo            interfaces.BetRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	limits             StakeLimits
}

// NewBettingService creates a new betting service bound to one unit of work
func NewBettingService(
	userRepo interfaces.UserRepository,
	roundRepo interfaces.RoundRepository,
	betRepo interfaces.BetRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	limits StakeLimits,
) interfaces.BettingService {
	return &bettingService{
		userRepo:           userRepo,
		roundRepo:          roundRepo,
		betRepo:            betRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		limits:             limits,
	}
}

func (s *bettingService) PlaceBet(ctx context.Context, round *entities.Round, userID int64, side entities.Side, stake decimal.Decimal) (*entities.BetReceipt, error) {
	if !side.IsValid() {
		return nil, entities.WrapBetError(entities.ErrCodeInvalidSide, fmt.Sprintf("side must be A or B, got %q", side), nil)
	}
	if err := s.limits.Validate(stake); err != nil {
		return nil, err
	}

	// Row lock serializes concurrent placements by the same user
	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.WrapBetError(entities.ErrCodeUserNotFound, fmt.Sprintf("user %d not found", userID), nil)
	}
	if !user.CanAfford(stake) {
		return nil, entities.WrapBetError(entities.ErrCodeInsufficientBalance,
			fmt.Sprintf("have %s, need %s", user.Balance.StringFixed(entities.MoneyPlaces), stake.StringFixed(entities.MoneyPlaces)), nil)
	}

	if err := s.roundRepo.Ensure(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to store round %s: %w", round.ID, err)
	}

	newBalance, err := s.userRepo.AdjustBalance(ctx, userID, stake.Neg())
	if err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}
	// The row is locked, so the store must agree with our own arithmetic
	if expected := user.CalculateNewBalance(stake.Neg()); !newBalance.Equal(expected) {
		return nil, fmt.Errorf("balance mismatch for user %d after debit: expected %s, store returned %s",
			userID, expected.StringFixed(entities.MoneyPlaces), newBalance.StringFixed(entities.MoneyPlaces))
	}

	bet := &entities.Bet{
		UserID:  userID,
		RoundID: round.ID,
		Side:    side,
		Stake:   stake,
		Status:  entities.BetStatusPlaced,
		Payout:  decimal.Zero,
		Net:     decimal.Zero,
	}
	if err := s.betRepo.Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet record: %w", err)
	}

	roundID := round.ID
	history := &entities.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    stake.Neg(),
		TransactionType: entities.TransactionTypeBetStake,
		TransactionMetadata: map[string]any{
			"side":  string(side),
			"stake": stake.StringFixed(entities.MoneyPlaces),
		},
		BetID:   &bet.ID,
		RoundID: &roundID,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := s.eventPublisher.Publish(events.BetPlacedEvent{
		BetID:   bet.ID,
		UserID:  userID,
		RoundID: round.ID,
		Side:    side,
		Stake:   stake,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bet placed event")
	}

	placedAt := bet.CreatedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}

	return &entities.BetReceipt{
		BetID:      bet.ID,
		RoundID:    round.ID,
		UserID:     userID,
		Side:       side,
		Stake:      stake,
		NewBalance: newBalance,
		Resolver:   entities.ResolverOfficial,
		PlacedAt:   placedAt,
	}, nil
}
