package infrastructure

import (
	"teenpatti/application"
	"teenpatti/database"
	"teenpatti/domain/interfaces"
	"teenpatti/repository"
)

type transactionalUnitOfWorkFactory interface {
	CreateWithPublisher(publisher interfaces.TransactionalEventPublisher) application.UnitOfWork
}

// UnitOfWorkFactory creates units of work whose events reach eventPublisher only after commit
type UnitOfWorkFactory struct {
	repoFactory    transactionalUnitOfWorkFactory
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// Create returns a UnitOfWork with its own transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewNATSTransactionalPublisher(f.eventPublisher))
}
