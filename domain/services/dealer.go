package services

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"time"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"
)

// RoundIDDigits is the length of a round identifier
const RoundIDDigits = 15

var (
	roundIDMin   = new(big.Int).Exp(big.NewInt(10), big.NewInt(RoundIDDigits-1), nil)
	roundIDRange = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(RoundIDDigits), nil), roundIDMin)
)

// NewRoundID returns an unguessable 15 digit decimal identifier
func NewRoundID() (string, error) {
	n, err := crand.Int(crand.Reader, roundIDRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate round id: %w", err)
	}
	return n.Add(n, roundIDMin).String(), nil
}

// Dealer creates fully dealt rounds with their outcome already decided
type Dealer struct {
	rng      interfaces.RandomSource
	resolver interfaces.OutcomeResolver
	mode     DealMode
	newID    func() (string, error)
}

// NewDealer creates a dealer
func NewDealer(rng interfaces.RandomSource, resolver interfaces.OutcomeResolver, mode DealMode) *Dealer {
	return &Dealer{
		rng:      rng,
		resolver: resolver,
		mode:     mode,
		newID:    NewRoundID,
	}
}

// Deal creates a new round starting at now
func (d *Dealer) Deal(now time.Time) (*entities.Round, error) {
	id, err := d.newID()
	if err != nil {
		return nil, err
	}

	playerA, playerB, err := DealHands(d.rng, d.mode)
	if err != nil {
		return nil, fmt.Errorf("failed to deal round %s: %w", id, err)
	}

	winner, resolver := d.resolver.Resolve(playerA, playerB)

	return &entities.Round{
		ID:        id,
		Game:      entities.GameTPT20,
		StartedAt: now,
		PlayerA:   playerA,
		PlayerB:   playerB,
		Winner:    winner,
		Resolver:  resolver,
		CreatedAt: now,
	}, nil
}
