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

type settlementService struct {
	userRepo           interfaces.UserRepository
	betRepo            interfaces.BetRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	returnRatio        decimal.Decimal
	now                func() time.Time
}

// NewSettlementService creates a settlement service bound to one unit of work
func NewSettlementService(
	userRepo interfaces.UserRepository,
	betRepo interfaces.BetRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	returnRatio decimal.Decimal,
) interfaces.SettlementService {
	return &settlementService{
		userRepo:           userRepo,
		betRepo:            betRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		returnRatio:        returnRatio,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (s *settlementService) SettleBet(ctx context.Context, betID int64, winner entities.Side) (*interfaces.SettlementOutcome, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", betID, err)
	}
	if bet == nil {
		return nil, fmt.Errorf("bet %d not found", betID)
	}

	// A second settlement attempt is a silent no-op
	if bet.Status.IsTerminal() {
		return &interfaces.SettlementOutcome{Bet: bet}, nil
	}

	if err := bet.Settle(winner, s.returnRatio, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.betRepo.UpdateSettlement(ctx, bet)
	if err != nil {
		return nil, fmt.Errorf("failed to update bet %d: %w", betID, err)
	}
	if !updated {
		return &interfaces.SettlementOutcome{Bet: bet}, nil
	}

	outcome := &interfaces.SettlementOutcome{Bet: bet, Settled: true}

	if bet.IsWin() {
		user, err := s.userRepo.GetByIDForUpdate(ctx, bet.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", bet.UserID, err)
		}
		if user == nil {
			return nil, entities.WrapBetError(entities.ErrCodeUserNotFound, fmt.Sprintf("user %d not found", bet.UserID), nil)
		}

		newBalance, err := s.userRepo.AdjustBalance(ctx, bet.UserID, bet.Payout)
		if err != nil {
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
		if expected := user.CalculateNewBalance(bet.Payout); !newBalance.Equal(expected) {
			return nil, fmt.Errorf("balance mismatch for user %d after payout: expected %s, store returned %s",
				bet.UserID, expected.StringFixed(entities.MoneyPlaces), newBalance.StringFixed(entities.MoneyPlaces))
		}

		roundID := bet.RoundID
		history := &entities.BalanceHistory{
			UserID:          bet.UserID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    newBalance,
			ChangeAmount:    bet.Payout,
			TransactionType: entities.TransactionTypeBetWin,
			TransactionMetadata: map[string]any{
				"stake":  bet.Stake.StringFixed(entities.MoneyPlaces),
				"payout": bet.Payout.StringFixed(entities.MoneyPlaces),
				"ratio":  s.returnRatio.String(),
			},
			BetID:   &bet.ID,
			RoundID: &roundID,
		}
		if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
			return nil, fmt.Errorf("failed to record balance change: %w", err)
		}
		outcome.NewBalance = newBalance
	} else {
		user, err := s.userRepo.GetByID(ctx, bet.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", bet.UserID, err)
		}
		if user != nil {
			outcome.NewBalance = user.Balance
		}
	}

	if err := s.eventPublisher.Publish(events.BetSettledEvent{
		BetID:   bet.ID,
		UserID:  bet.UserID,
		RoundID: bet.RoundID,
		Status:  bet.Status,
		Payout:  bet.Payout,
		Net:     bet.Net,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bet settled event")
	}

	return outcome, nil
}
