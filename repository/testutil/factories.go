package testutil

import (
	"time"

	"teenpatti/domain/entities"

	"github.com/shopspring/decimal"
)

// TestRoundID is a fixed 15 digit round id for fixtures
const TestRoundID = "100000000000001"

// CreateTestRound returns a round where player A holds a trail of aces and wins
func CreateTestRound(roundID string, startedAt time.Time) *entities.Round {
	playerA, _ := entities.ParseHand([]string{"AS", "AH", "AD"})
	playerB, _ := entities.ParseHand([]string{"2C", "7D", "9S"})
	return &entities.Round{
		ID:        roundID,
		Game:      entities.GameTPT20,
		StartedAt: startedAt.UTC().Truncate(time.Microsecond),
		PlayerA:   playerA,
		PlayerB:   playerB,
		Winner:    entities.SideA,
		Resolver:  entities.ResolverOfficial,
	}
}

// CreateTestBet returns a PLACED bet
func CreateTestBet(userID int64, roundID string, side entities.Side, stake string) *entities.Bet {
	return &entities.Bet{
		UserID:  userID,
		RoundID: roundID,
		Side:    side,
		Stake:   decimal.RequireFromString(stake),
		Status:  entities.BetStatusPlaced,
	}
}

// CreateTestBalanceHistory returns a stake debit history entry
func CreateTestBalanceHistory(userID int64, before, change string) *entities.BalanceHistory {
	b := decimal.RequireFromString(before)
	c := decimal.RequireFromString(change)
	return &entities.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   b,
		BalanceAfter:    b.Add(c),
		ChangeAmount:    c,
		TransactionType: entities.TransactionTypeBetStake,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
