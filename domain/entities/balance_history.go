package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceHistory represents a single money movement on a user's balance
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	BetID               *int64          `db:"bet_id"`
	RoundID             *string         `db:"round_id"`
	CreatedAt           time.Time       `db:"created_at"`
}

// GetTransactionDescription returns a human-readable description of the transaction
func (bh *BalanceHistory) GetTransactionDescription() string {
	switch bh.TransactionType {
	case TransactionTypeBetStake:
		return "Stake placed"
	case TransactionTypeBetWin:
		return "Bet won"
	case TransactionTypeGrant:
		return "Operator grant"
	default:
		return string(bh.TransactionType)
	}
}

// ValidateTransaction performs basic validation on the transaction
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount.IsZero() {
		return errors.New("change amount cannot be zero")
	}
	if !bh.BalanceAfter.Equal(bh.BalanceBefore.Add(bh.ChangeAmount)) {
		return errors.New("balance calculation is inconsistent")
	}
	if bh.BalanceAfter.IsNegative() {
		return errors.New("balance cannot go negative")
	}
	return nil
}
