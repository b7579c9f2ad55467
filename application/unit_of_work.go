package application

import (
	"context"

	"teenpatti/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and then releases buffered events
	Commit() error

	// Rollback rolls back the transaction and drops buffered events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	RoundRepository() interfaces.RoundRepository
	BetRepository() interfaces.BetRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
