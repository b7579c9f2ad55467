package events

import (
	"time"

	"teenpatti/domain/entities"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeBetPlaced          EventType = "bet_placed"
	EventTypeBetSettled         EventType = "bet_settled"
	EventTypeRoundStarted       EventType = "round_started"
	EventTypeRoundFinalized     EventType = "round_finalized"
	EventTypeUserProfileUpdated EventType = "user_profile_updated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                    `json:"user_id"`
	OldBalance      decimal.Decimal          `json:"old_balance"`
	NewBalance      decimal.Decimal          `json:"new_balance"`
	ChangeAmount    decimal.Decimal          `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	RoundID         string                   `json:"round_id,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// BetPlacedEvent is emitted when a stake is accepted
type BetPlacedEvent struct {
	BetID   int64           `json:"bet_id"`
	UserID  int64           `json:"user_id"`
	RoundID string          `json:"round_id"`
	Side    entities.Side   `json:"side"`
	Stake   decimal.Decimal `json:"stake"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetSettledEvent is emitted once per bet when it leaves PLACED
type BetSettledEvent struct {
	BetID   int64              `json:"bet_id"`
	UserID  int64              `json:"user_id"`
	RoundID string             `json:"round_id"`
	Status  entities.BetStatus `json:"status"`
	Payout  decimal.Decimal    `json:"payout"`
	Net     decimal.Decimal    `json:"net"`
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// RoundStartedEvent is emitted when a new round becomes current
type RoundStartedEvent struct {
	RoundID       string    `json:"round_id"`
	StartedAt     time.Time `json:"started_at"`
	BettingEndsAt time.Time `json:"betting_ends_at"`
	EndsAt        time.Time `json:"ends_at"`
}

func (e RoundStartedEvent) Type() EventType {
	return EventTypeRoundStarted
}

// RoundFinalizedEvent is emitted after a round's outcome is persisted
type RoundFinalizedEvent struct {
	RoundID  string               `json:"round_id"`
	Winner   entities.Side        `json:"winner"`
	PlayerA  []string             `json:"player_a_cards"`
	PlayerB  []string             `json:"player_b_cards"`
	Resolver entities.ResolverTag `json:"resolver"`
	EndedAt  time.Time            `json:"ended_at"`
}

func (e RoundFinalizedEvent) Type() EventType {
	return EventTypeRoundFinalized
}

// UserProfileUpdatedEvent pushes the latest balance and exposure to a user
type UserProfileUpdatedEvent struct {
	UserID   int64           `json:"user_id"`
	Balance  decimal.Decimal `json:"balance"`
	Exposure decimal.Decimal `json:"exposure"`
	RoundID  string          `json:"round_id"`
}

func (e UserProfileUpdatedEvent) Type() EventType {
	return EventTypeUserProfileUpdated
}
