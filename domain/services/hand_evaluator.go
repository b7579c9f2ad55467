package services

import (
	"sort"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"
)

// EvaluateHand ranks a three card hand. The result does not depend on card order.
func EvaluateHand(hand entities.Hand) entities.HandRank {
	ranks := make([]int, entities.HandSize)
	for i, c := range hand {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	flush := hand[0].Suit == hand[1].Suit && hand[1].Suit == hand[2].Suit
	lowStraight := ranks[0] == int(entities.Ace) && ranks[1] == int(entities.Three) && ranks[2] == int(entities.Two)
	straight := lowStraight || (ranks[0]-1 == ranks[1] && ranks[1]-1 == ranks[2])

	straightTiebreak := ranks
	if lowStraight {
		// ace plays low in A-2-3
		straightTiebreak = []int{3, 2, 1}
	}

	switch {
	case ranks[0] == ranks[1] && ranks[1] == ranks[2]:
		return entities.HandRank{Category: entities.CategoryThreeOfAKind, Tiebreak: []int{ranks[0]}}
	case straight && flush:
		return entities.HandRank{Category: entities.CategoryStraightFlush, Tiebreak: straightTiebreak}
	case straight:
		return entities.HandRank{Category: entities.CategoryStraight, Tiebreak: straightTiebreak}
	case flush:
		return entities.HandRank{Category: entities.CategoryFlush, Tiebreak: ranks}
	case ranks[0] == ranks[1]:
		return entities.HandRank{Category: entities.CategoryPair, Tiebreak: []int{ranks[0], ranks[2]}}
	case ranks[1] == ranks[2]:
		return entities.HandRank{Category: entities.CategoryPair, Tiebreak: []int{ranks[1], ranks[0]}}
	default:
		return entities.HandRank{Category: entities.CategoryHighCard, Tiebreak: ranks}
	}
}

// CompareHands returns the side holding the stronger hand.
// Exact ties are decided by a fair coin drawn from rng.
func CompareHands(playerA, playerB entities.Hand, rng interfaces.RandomSource) entities.Side {
	switch EvaluateHand(playerA).Compare(EvaluateHand(playerB)) {
	case 1:
		return entities.SideA
	case -1:
		return entities.SideB
	}
	if rng.IntN(2) == 0 {
		return entities.SideA
	}
	return entities.SideB
}
