package services

import (
	"fmt"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"
)

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// DealMode controls whether both hands come from one deck
type DealMode string

const (
	// DealModeSharedDeck deals both hands from a single shuffled deck, so no card repeats across hands
	DealModeSharedDeck DealMode = "shared"
	// DealModeIndependent deals each hand from its own freshly shuffled deck
	DealModeIndependent DealMode = "independent"
)

// ParseDealMode maps a config value to a DealMode
func ParseDealMode(s string) (DealMode, error) {
	switch DealMode(s) {
	case "", DealModeSharedDeck:
		return DealModeSharedDeck, nil
	case DealModeIndependent:
		return DealModeIndependent, nil
	}
	return "", fmt.Errorf("unknown deal mode %q", s)
}

// Deck is an ordered set of cards
type Deck struct {
	Cards []entities.Card
}

// NewDeck creates a full 52 card deck
func NewDeck() *Deck {
	deck := &Deck{Cards: make([]entities.Card, 0, DeckSize)}
	for _, suit := range entities.Suits {
		for _, rank := range entities.Ranks {
			deck.Cards = append(deck.Cards, entities.Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle shuffles the deck in place (Fisher-Yates)
func (d *Deck) Shuffle(rng interfaces.RandomSource) {
	for i := len(d.Cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
}

// Draw draws n cards from the top of the deck
func (d *Deck) Draw(n int) ([]entities.Card, error) {
	if n > len(d.Cards) {
		return nil, fmt.Errorf("cannot draw %d cards from %d remaining", n, len(d.Cards))
	}
	cards := d.Cards[:n]
	d.Cards = d.Cards[n:]
	return cards, nil
}

// Remaining returns the number of cards left
func (d *Deck) Remaining() int {
	return len(d.Cards)
}

// DealHand draws a hand from the deck
func (d *Deck) DealHand() (entities.Hand, error) {
	cards, err := d.Draw(entities.HandSize)
	if err != nil {
		return entities.Hand{}, err
	}
	return entities.NewHand(cards...)
}

// DealHand shuffles a fresh deck and deals one hand from it
func DealHand(rng interfaces.RandomSource) (entities.Hand, error) {
	deck := NewDeck()
	deck.Shuffle(rng)
	return deck.DealHand()
}

// DealHands deals hands for sides A and B according to mode
func DealHands(rng interfaces.RandomSource, mode DealMode) (playerA, playerB entities.Hand, err error) {
	if mode == DealModeIndependent {
		if playerA, err = DealHand(rng); err != nil {
			return
		}
		playerB, err = DealHand(rng)
		return
	}

	deck := NewDeck()
	deck.Shuffle(rng)
	if playerA, err = deck.DealHand(); err != nil {
		return
	}
	playerB, err = deck.DealHand()
	return
}
