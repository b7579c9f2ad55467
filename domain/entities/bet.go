package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places money is kept at
const MoneyPlaces = 2

// BetStatus is the settlement state of a bet
type BetStatus string

const (
	BetStatusPlaced BetStatus = "PLACED"
	BetStatusWon    BetStatus = "WON"
	BetStatusLost   BetStatus = "LOST"
)

// IsTerminal reports whether the status can no longer change
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusWon || s == BetStatusLost
}

// Bet is a stake on one side of a round
type Bet struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	RoundID   string          `db:"round_id"`
	Side      Side            `db:"side"`
	Stake     decimal.Decimal `db:"stake"`
	Status    BetStatus       `db:"status"`
	Payout    decimal.Decimal `db:"payout"`
	Net       decimal.Decimal `db:"net"`
	SettledAt *time.Time      `db:"settled_at"`
	CreatedAt time.Time       `db:"created_at"`
}

// Settle moves a placed bet to WON or LOST against the round winner.
// A win pays stake*returnRatio rounded half-up to cents; a loss pays nothing.
func (b *Bet) Settle(winner Side, returnRatio decimal.Decimal, at time.Time) error {
	if b.Status != BetStatusPlaced {
		return WrapBetError(ErrCodeAlreadySettled, fmt.Sprintf("bet %d is %s", b.ID, b.Status), nil)
	}
	if !winner.IsValid() {
		return fmt.Errorf("cannot settle bet %d against winner %q", b.ID, winner)
	}

	if b.Side == winner {
		b.Status = BetStatusWon
		b.Payout = b.Stake.Mul(returnRatio).Round(MoneyPlaces)
	} else {
		b.Status = BetStatusLost
		b.Payout = decimal.Zero
	}
	b.Net = b.Payout.Sub(b.Stake)
	b.SettledAt = &at
	return nil
}

// IsWin returns true if the bet settled as a win
func (b *Bet) IsWin() bool {
	return b.Status == BetStatusWon
}

// BetReceipt is returned to the caller after a successful placement
type BetReceipt struct {
	BetID      int64           `json:"bet_id"`
	RoundID    string          `json:"round_id"`
	UserID     int64           `json:"user_id"`
	Side       Side            `json:"side"`
	Stake      decimal.Decimal `json:"stake"`
	NewBalance decimal.Decimal `json:"balance"`
	Resolver   ResolverTag     `json:"resolver"`
	PlacedAt   time.Time       `json:"placed_at"`
}
