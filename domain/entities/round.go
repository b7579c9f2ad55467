package entities

import (
	"time"
)

// GameTPT20 is the game identifier stored on every round
const GameTPT20 = "tpt20"

// FaceDown is rendered in place of a card that has not been disclosed yet
const FaceDown = "flipped_card"

// RevealSteps is the number of disclosure steps in the reveal phase
const RevealSteps = 6

// ResolverTag records which outcome policy decided a round
type ResolverTag string

const (
	ResolverOfficial ResolverTag = "official"
)

// Phase is the part of the cycle a round is in
type Phase string

const (
	PhaseBetting   Phase = "betting"
	PhaseRevealing Phase = "revealing"
)

// RoundTiming holds the window lengths of a round cycle
type RoundTiming struct {
	BettingWindow time.Duration
	RevealWindow  time.Duration
}

// DefaultRoundTiming is the 20s betting + 10s reveal cycle
func DefaultRoundTiming() RoundTiming {
	return RoundTiming{
		BettingWindow: 20 * time.Second,
		RevealWindow:  10 * time.Second,
	}
}

// Cycle is the full length of one round
func (t RoundTiming) Cycle() time.Duration {
	return t.BettingWindow + t.RevealWindow
}

func (t RoundTiming) bettingSeconds() int64 {
	return int64(t.BettingWindow / time.Second)
}

func (t RoundTiming) revealSeconds() int64 {
	return int64(t.RevealWindow / time.Second)
}

func (t RoundTiming) cycleSeconds() int64 {
	return t.bettingSeconds() + t.revealSeconds()
}

// CyclePosition describes where a round is within its cycle
type CyclePosition struct {
	Second      int64 // whole seconds into the cycle
	Phase       Phase
	SecondsLeft int64 // seconds left in the current phase
	RevealStep  int   // 0 while betting, 1..RevealSteps while revealing
}

// ElapsedSeconds returns whole seconds elapsed since start
func ElapsedSeconds(start, now time.Time) int64 {
	return int64(now.Sub(start) / time.Second)
}

// Position computes the cycle position from wall-clock times
func (t RoundTiming) Position(start, now time.Time) CyclePosition {
	cycle := t.cycleSeconds()
	sec := ElapsedSeconds(start, now) % cycle
	if sec < 0 {
		sec += cycle
	}
	return t.PositionAt(sec)
}

// PositionAt computes the cycle position for a second within the cycle
func (t RoundTiming) PositionAt(sec int64) CyclePosition {
	bet := t.bettingSeconds()
	if sec < bet {
		return CyclePosition{
			Second:      sec,
			Phase:       PhaseBetting,
			SecondsLeft: bet - sec,
		}
	}

	reveal := t.revealSeconds()
	into := sec - bet
	left := reveal - into
	if left < 0 {
		left = 0
	}
	return CyclePosition{
		Second:      sec,
		Phase:       PhaseRevealing,
		SecondsLeft: left,
		RevealStep:  revealStep(into, reveal),
	}
}

// revealStep is floor(into/reveal*6)+1 clamped to [1, RevealSteps]
func revealStep(into, reveal int64) int {
	if reveal <= 0 {
		return RevealSteps
	}
	step := int(into*RevealSteps/reveal) + 1
	if step < 1 {
		return 1
	}
	if step > RevealSteps {
		return RevealSteps
	}
	return step
}

// IsOver reports whether a full cycle has elapsed since start
func (t RoundTiming) IsOver(start, now time.Time) bool {
	return ElapsedSeconds(start, now) >= t.cycleSeconds()
}

// Round is one game of two three-card hands. The winner is fixed when the
// round is dealt; only EndedAt changes afterwards.
type Round struct {
	ID        string      `db:"round_id"`
	Game      string      `db:"game"`
	StartedAt time.Time   `db:"started_at"`
	EndedAt   *time.Time  `db:"ended_at"`
	PlayerA   Hand        `db:"player_a_cards"`
	PlayerB   Hand        `db:"player_b_cards"`
	Winner    Side        `db:"winner"`
	Resolver  ResolverTag `db:"resolver"`
	CreatedAt time.Time   `db:"created_at"`
}

// IsFinalized returns true once the round has been closed out
func (r *Round) IsFinalized() bool {
	return r.EndedAt != nil
}

// VisibleCards returns both hands with undisclosed cards masked for the given reveal step.
// Disclosure order is A0, B0, A1, B1, A2, B2.
func (r *Round) VisibleCards(step int) (playerA, playerB []string) {
	playerA = make([]string, HandSize)
	playerB = make([]string, HandSize)
	for i := 0; i < HandSize; i++ {
		playerA[i] = FaceDown
		playerB[i] = FaceDown
		if step >= 2*i+1 {
			playerA[i] = r.PlayerA[i].String()
		}
		if step >= 2*i+2 {
			playerB[i] = r.PlayerB[i].String()
		}
	}
	return playerA, playerB
}

// WinnerAt returns the winner only once the final reveal step is reached
func (r *Round) WinnerAt(step int) *Side {
	if step < RevealSteps {
		return nil
	}
	w := r.Winner
	return &w
}

// Result returns the public summary of a finished round
func (r *Round) Result() RoundResult {
	return RoundResult{
		RoundID: r.ID,
		Winner:  r.Winner,
		PlayerA: r.PlayerA.Codes(),
		PlayerB: r.PlayerB.Codes(),
		EndedAt: r.EndedAt,
	}
}

// RoundResult is the outcome of a finished round as shown in history feeds
type RoundResult struct {
	RoundID string     `json:"round_id"`
	Winner  Side       `json:"winner"`
	PlayerA []string   `json:"player_a_cards"`
	PlayerB []string   `json:"player_b_cards"`
	EndedAt *time.Time `json:"ended_at,omitempty"`
}
