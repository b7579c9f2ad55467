package dto

import (
	"time"

	"teenpatti/domain/entities"

	"github.com/shopspring/decimal"
)

// RoundSnapshot is the public view of the current round at one instant
type RoundSnapshot struct {
	RoundID       string                 `json:"round_id"`
	Phase         entities.Phase         `json:"phase"`
	SecondsLeft   int                    `json:"seconds_left"`
	RevealStep    int                    `json:"reveal_step"`
	PlayerA       []string               `json:"player_a_cards"`
	PlayerB       []string               `json:"player_b_cards"`
	Winner        *entities.Side         `json:"winner"`
	ServerTime    time.Time              `json:"server_time"`
	RecentResults []entities.RoundResult `json:"recent_results"`
}

// PlaceBetRequest is a stake on one side of a specific round
type PlaceBetRequest struct {
	RoundID string          `json:"round_id"`
	UserID  int64           `json:"user_id"`
	Side    entities.Side   `json:"side"`
	Stake   decimal.Decimal `json:"stake"`
}

// SettlementReport summarises one run of round settlement
type SettlementReport struct {
	RoundID       string
	Winner        entities.Side
	Settled       int
	Won           int
	Lost          int
	Skipped       int
	Failed        int
	AffectedUsers []int64
}
