package interfaces

import (
	"context"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user balance access
type UserRepository interface {
	// GetByID retrieves a user, returning nil if the user does not exist
	GetByID(ctx context.Context, userID int64) (*entities.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, userID int64) (*entities.User, error)

	// Create creates a new user with the given starting balance
	Create(ctx context.Context, userID int64, username string, initialBalance decimal.Decimal) (*entities.User, error)

	// AdjustBalance atomically applies delta and returns the new balance.
	// Returns ErrInsufficientBalance if the result would be negative.
	AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// RoundRepository defines the interface for round persistence
type RoundRepository interface {
	// Ensure inserts the round without its outcome if it is not stored yet
	Ensure(ctx context.Context, round *entities.Round) error

	// Upsert stores the round with its winner, resolver and end time
	Upsert(ctx context.Context, round *entities.Round) error

	// GetByID retrieves a round, returning nil if not found
	GetByID(ctx context.Context, roundID string) (*entities.Round, error)

	// GetRecentFinished returns the latest rounds with a persisted winner, newest first
	GetRecentFinished(ctx context.Context, limit int) ([]*entities.Round, error)

	// GetUnsettledFinished returns finished rounds that still have PLACED bets
	GetUnsettledFinished(ctx context.Context, limit int) ([]*entities.Round, error)
}

// BetRepository defines the interface for bet persistence
type BetRepository interface {
	Create(ctx context.Context, bet *entities.Bet) error
	GetByID(ctx context.Context, id int64) (*entities.Bet, error)

	// GetByIDForUpdate retrieves a bet and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error)

	// GetPlacedIDsByRound returns ids of bets still PLACED in a round
	GetPlacedIDsByRound(ctx context.Context, roundID string) ([]int64, error)

	// UpdateSettlement writes the terminal state of a bet.
	// Returns false if the bet was no longer PLACED.
	UpdateSettlement(ctx context.Context, bet *entities.Bet) (bool, error)

	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.Bet, error)

	// SumPlacedStakes returns the user's total PLACED stake in a round
	SumPlacedStakes(ctx context.Context, userID int64, roundID string) (decimal.Decimal, error)
}

// BalanceHistoryRepository defines the interface for balance history data access
type BalanceHistoryRepository interface {
	Record(ctx context.Context, history *entities.BalanceHistory) error
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
