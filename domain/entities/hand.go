package entities

import (
	"encoding/json"
	"fmt"
)

// HandSize is the number of cards dealt to each side
const HandSize = 3

// Hand is an immutable set of three distinct cards
type Hand [HandSize]Card

// NewHand builds a hand, rejecting duplicates and invalid cards
func NewHand(cards ...Card) (Hand, error) {
	var h Hand
	if len(cards) != HandSize {
		return h, fmt.Errorf("hand requires %d cards, got %d", HandSize, len(cards))
	}
	seen := make(map[Card]bool, HandSize)
	for i, c := range cards {
		if !c.Rank.IsValid() || !c.Suit.IsValid() {
			return h, fmt.Errorf("invalid card %v", c)
		}
		if seen[c] {
			return h, fmt.Errorf("duplicate card %s in hand", c)
		}
		seen[c] = true
		h[i] = c
	}
	return h, nil
}

// ParseHand parses three card codes into a hand
func ParseHand(codes []string) (Hand, error) {
	cards := make([]Card, 0, len(codes))
	for _, code := range codes {
		c, err := ParseCard(code)
		if err != nil {
			return Hand{}, err
		}
		cards = append(cards, c)
	}
	return NewHand(cards...)
}

// Codes returns the card codes in dealt order
func (h Hand) Codes() []string {
	codes := make([]string, HandSize)
	for i, c := range h {
		codes[i] = c.String()
	}
	return codes
}

// MarshalJSON encodes the hand as its card codes
func (h Hand) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Codes())
}

// UnmarshalJSON decodes a hand from card codes
func (h *Hand) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	parsed, err := ParseHand(codes)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Category is the hand classification. Higher values beat lower ones.
type Category int

const (
	CategoryHighCard      Category = 1
	CategoryPair          Category = 2
	CategoryFlush         Category = 3
	CategoryStraight      Category = 4
	CategoryStraightFlush Category = 5
	CategoryThreeOfAKind  Category = 6
)

func (c Category) String() string {
	switch c {
	case CategoryHighCard:
		return "high card"
	case CategoryPair:
		return "pair"
	case CategoryFlush:
		return "flush"
	case CategoryStraight:
		return "straight"
	case CategoryStraightFlush:
		return "straight flush"
	case CategoryThreeOfAKind:
		return "three of a kind"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// HandRank is a totally ordered strength value for a hand
type HandRank struct {
	Category Category
	Tiebreak []int
}

// Compare returns 1 if r beats other, -1 if other beats r and 0 on an exact tie.
// Tiebreak lists are compared position by position with missing entries read as 0.
func (r HandRank) Compare(other HandRank) int {
	if r.Category != other.Category {
		if r.Category > other.Category {
			return 1
		}
		return -1
	}

	n := len(r.Tiebreak)
	if len(other.Tiebreak) > n {
		n = len(other.Tiebreak)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(r.Tiebreak) {
			a = r.Tiebreak[i]
		}
		if i < len(other.Tiebreak) {
			b = other.Tiebreak[i]
		}
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Side identifies one of the two hands in a round
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// IsValid reports whether the side is A or B
func (s Side) IsValid() bool {
	return s == SideA || s == SideB
}

// ParseSide normalizes user input into a Side
func ParseSide(s string) (Side, error) {
	switch s {
	case "A", "a":
		return SideA, nil
	case "B", "b":
		return SideB, nil
	}
	return "", NewBetError(ErrCodeInvalidSide, fmt.Sprintf("side must be A or B, got %q", s))
}
