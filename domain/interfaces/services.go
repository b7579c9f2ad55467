package interfaces

import (
	"context"

	"teenpatti/domain/entities"

	"github.com/shopspring/decimal"
)

// BettingService defines the interface for stake placement
type BettingService interface {
	// PlaceBet validates the stake, debits the user and records a PLACED bet on the round.
	// The caller is responsible for checking that the round is current and open.
	PlaceBet(ctx context.Context, round *entities.Round, userID int64, side entities.Side, stake decimal.Decimal) (*entities.BetReceipt, error)
}

// SettlementOutcome describes what happened to a single bet during settlement
type SettlementOutcome struct {
	Bet        *entities.Bet
	Settled    bool // false when the bet was already terminal
	NewBalance decimal.Decimal
}

// SettlementService defines the interface for settling individual bets
type SettlementService interface {
	// SettleBet settles one PLACED bet against the winner. Already settled bets are a no-op.
	SettleBet(ctx context.Context, betID int64, winner entities.Side) (*SettlementOutcome, error)
}

// OutcomeResolver decides which side wins a round
type OutcomeResolver interface {
	Resolve(playerA, playerB entities.Hand) (entities.Side, entities.ResolverTag)
}

// RandomSource is the subset of math/rand/v2 used for shuffling and tie-breaks
type RandomSource interface {
	IntN(n int) int
}
