package repository

import (
	"context"
	"fmt"

	"teenpatti/database"
	"teenpatti/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// SeedUser creates a user funded with an operator grant. Used for local provisioning only.
func SeedUser(ctx context.Context, db *database.DB, userID int64, username string, balance decimal.Decimal) (*entities.User, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("starting balance cannot be negative")
	}

	var user *entities.User
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		user, err = newUserRepository(tx).Create(ctx, userID, username, balance)
		if err != nil {
			return err
		}
		if balance.IsZero() {
			return nil
		}

		return newBalanceHistoryRepository(tx).Record(ctx, &entities.BalanceHistory{
			UserID:          userID,
			BalanceBefore:   decimal.Zero,
			BalanceAfter:    balance,
			ChangeAmount:    balance,
			TransactionType: entities.TransactionTypeGrant,
			TransactionMetadata: map[string]any{
				"source": "seed",
			},
		})
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"balance": balance.StringFixed(entities.MoneyPlaces),
	}).Info("Seeded user")
	return user, nil
}
