package repository

import (
	"context"
	"errors"
	"fmt"

	"teenpatti/application"
	"teenpatti/database"
	"teenpatti/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements application.UnitOfWork over one pgx transaction
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	userRepo               interfaces.UserRepository
	roundRepo              interfaces.RoundRepository
	betRepo                interfaces.BetRepository
	balanceHistoryRepo     interfaces.BalanceHistoryRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a UnitOfWork whose events are released by the given publisher on commit
func (f *unitOfWorkFactory) CreateWithPublisher(publisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: publisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.roundRepo = newRoundRepository(tx)
	u.betRepo = newBetRepository(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	// The data is durable at this point, so a publish failure is only logged
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// RoundRepository returns the round repository for this unit of work
func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
