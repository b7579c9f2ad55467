package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a player account. Balance is never negative.
type User struct {
	ID        int64           `db:"id"`
	Username  string          `db:"username"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CanAfford checks if the user has at least amount available
func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}

// CalculateNewBalance calculates what the balance would be after a change
func (u *User) CalculateNewBalance(changeAmount decimal.Decimal) decimal.Decimal {
	return u.Balance.Add(changeAmount)
}

// UserProfile is the balance/exposure pair pushed to a user after money moves
type UserProfile struct {
	UserID   int64           `json:"user_id"`
	Balance  decimal.Decimal `json:"balance"`
	Exposure decimal.Decimal `json:"exposure"`
	RoundID  string          `json:"round_id"`
}
