package entities

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

// Suits lists every suit in deck order
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is the numeric value of a card, 2 through 14 (ace high)
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Ranks lists every rank from lowest to highest
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

var rankSymbols = map[Rank]string{
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
}

// String returns the short symbol used in card codes
func (r Rank) String() string {
	if s, ok := rankSymbols[r]; ok {
		return s
	}
	return fmt.Sprintf("%d", int(r))
}

// IsValid reports whether the rank is within 2..A
func (r Rank) IsValid() bool {
	return r >= Two && r <= Ace
}

// IsValid reports whether the suit is one of the four standard suits
func (s Suit) IsValid() bool {
	switch s {
	case Spades, Hearts, Diamonds, Clubs:
		return true
	}
	return false
}

// Card is a single playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// String returns the card code, e.g. "AS" or "10H"
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

// ParseCard parses a card code produced by Card.String
func ParseCard(code string) (Card, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 3 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}

	suit := Suit(code[len(code)-1:])
	if !suit.IsValid() {
		return Card{}, fmt.Errorf("invalid suit in card code %q", code)
	}

	rankPart := code[:len(code)-1]
	for _, r := range Ranks {
		if r.String() == rankPart {
			return Card{Rank: r, Suit: suit}, nil
		}
	}
	return Card{}, fmt.Errorf("invalid rank in card code %q", code)
}
