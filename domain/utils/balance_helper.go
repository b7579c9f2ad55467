package utils

import (
	"context"
	"fmt"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordBalanceChange records a balance history entry and emits a BalanceChangeEvent.
// Every money movement goes through here.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) error {
	if err := history.ValidateTransaction(); err != nil {
		return fmt.Errorf("invalid balance change for user %d: %w", history.UserID, err)
	}

	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	event := events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	}
	if history.RoundID != nil {
		event.RoundID = *history.RoundID
	}
	log.WithFields(log.Fields{
		"user_id":         event.UserID,
		"oldBalance":      event.OldBalance.StringFixed(entities.MoneyPlaces),
		"newBalance":      event.NewBalance.StringFixed(entities.MoneyPlaces),
		"transactionType": event.TransactionType,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}
