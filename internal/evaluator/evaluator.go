// Package evaluator ranks poker hands. Evaluate takes five to seven
// cards and returns a HandStrength whose numeric Value is a total
// order: a numerically greater value always beats a lesser one, and
// equal values split.
//
// The implementation works on per-suit rank bitmasks (bit 0 is a deuce,
// bit 12 an ace), so flush and straight detection are mask operations
// and pair structure falls out of cross-suit intersections.
package evaluator

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
)

// Category is the hand class, ordered weakest (1) to strongest (10).
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the category's display name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

var (
	// ErrCardCount is returned for hands outside the 5..7 card range.
	ErrCardCount = errors.New("evaluator: need between 5 and 7 cards")
	// ErrDuplicateCard is returned when the same card appears twice.
	ErrDuplicateCard = errors.New("evaluator: duplicate card")
)

// HandStrength is the comparable result of evaluating a hand. Value
// packs the category and the five decisive ranks most significant
// first, so comparing two values compares hands.
type HandStrength struct {
	Value       uint32
	Category    Category
	Ranks       [5]deck.Rank
	Description string
}

// Beats reports whether hs strictly beats other.
func (hs HandStrength) Beats(other HandStrength) bool {
	return hs.Value > other.Value
}

// Compare returns 1 if hs wins, -1 if other wins, 0 on a split.
func (hs HandStrength) Compare(other HandStrength) int {
	switch {
	case hs.Value > other.Value:
		return 1
	case hs.Value < other.Value:
		return -1
	default:
		return 0
	}
}

// Evaluate ranks the best five-card hand available in cards.
func Evaluate(cards []deck.Card) (HandStrength, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandStrength{}, fmt.Errorf("%w, got %d", ErrCardCount, len(cards))
	}

	var suits [4]uint16
	for _, c := range cards {
		bit := uint16(1) << uint(c.Rank-deck.Two)
		if suits[c.Suit]&bit != 0 {
			return HandStrength{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		suits[c.Suit] |= bit
	}

	return rank(suits), nil
}

// rank classifies the hand from its suit masks. Categories are checked
// strongest first; the first match wins.
func rank(suits [4]uint16) HandStrength {
	rankMask := suits[0] | suits[1] | suits[2] | suits[3]

	// Straight flush (royal included). With seven cards at most one
	// suit can hold five, so the first qualifying suit is the only one.
	for _, sm := range suits {
		if bits.OnesCount16(sm) < 5 {
			continue
		}
		if high := straightHigh(sm); high != 0 {
			if high == deck.Ace {
				return build(RoyalFlush, straightRanks(high))
			}
			return build(StraightFlush, straightRanks(high))
		}
	}

	quadMask := suits[0] & suits[1] & suits[2] & suits[3]
	tripCandidates := (suits[0] & suits[1] & suits[2]) |
		(suits[0] & suits[1] & suits[3]) |
		(suits[0] & suits[2] & suits[3]) |
		(suits[1] & suits[2] & suits[3])
	tripMask := tripCandidates &^ quadMask
	pairMask := ((suits[0] & suits[1]) | (suits[0] & suits[2]) | (suits[0] & suits[3]) |
		(suits[1] & suits[2]) | (suits[1] & suits[3]) | (suits[2] & suits[3])) &^ tripCandidates

	if quadMask != 0 {
		quad := topRank(quadMask)
		kicker := topRank(rankMask &^ bitOf(quad))
		return build(FourOfAKind, [5]deck.Rank{quad, kicker})
	}

	if tripMask != 0 {
		trip := topRank(tripMask)
		// A second trip or any pair fills the house.
		if fill := (tripMask &^ bitOf(trip)) | pairMask; fill != 0 {
			return build(FullHouse, [5]deck.Rank{trip, topRank(fill)})
		}
	}

	for _, sm := range suits {
		if bits.OnesCount16(sm) >= 5 {
			return build(Flush, topRanks(sm, 5))
		}
	}

	if high := straightHigh(rankMask); high != 0 {
		return build(Straight, straightRanks(high))
	}

	if tripMask != 0 {
		trip := topRank(tripMask)
		kickers := topRanks(rankMask&^bitOf(trip), 2)
		return build(ThreeOfAKind, [5]deck.Rank{trip, kickers[0], kickers[1]})
	}

	if bits.OnesCount16(pairMask) >= 2 {
		high := topRank(pairMask)
		low := topRank(pairMask &^ bitOf(high))
		kicker := topRank(rankMask &^ (bitOf(high) | bitOf(low)))
		return build(TwoPair, [5]deck.Rank{high, low, kicker})
	}

	if pairMask != 0 {
		pair := topRank(pairMask)
		kickers := topRanks(rankMask&^bitOf(pair), 3)
		return build(Pair, [5]deck.Rank{pair, kickers[0], kickers[1], kickers[2]})
	}

	return build(HighCard, topRanks(rankMask, 5))
}

// build packs the category and decisive ranks into the comparable
// value and attaches the human description.
func build(cat Category, ranks [5]deck.Rank) HandStrength {
	v := uint32(cat) << 20
	for i, r := range ranks {
		v |= uint32(r) << uint(16-4*i)
	}
	return HandStrength{
		Value:       v,
		Category:    cat,
		Ranks:       ranks,
		Description: describe(cat, ranks),
	}
}

// straightHigh returns the high rank of the best straight in the mask,
// or zero when there is none. The wheel counts as five high.
func straightHigh(mask uint16) deck.Rank {
	const wheel = 0x100F // A-2-3-4-5
	run := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4)
	if run != 0 {
		low := bits.Len16(run) - 1
		return deck.Rank(low+4) + deck.Two
	}
	if mask&wheel == wheel {
		return deck.Five
	}
	return 0
}

// straightRanks lists the five straight ranks descending from high.
// The wheel ends with the ace playing low.
func straightRanks(high deck.Rank) [5]deck.Rank {
	var out [5]deck.Rank
	if high == deck.Five {
		return [5]deck.Rank{deck.Five, deck.Four, deck.Three, deck.Two, deck.Ace}
	}
	for i := range out {
		out[i] = high - deck.Rank(i)
	}
	return out
}

func bitOf(r deck.Rank) uint16 {
	return 1 << uint(r-deck.Two)
}

// topRank returns the highest rank present in the mask. The mask must
// be non-zero.
func topRank(mask uint16) deck.Rank {
	return deck.Rank(bits.Len16(mask)-1) + deck.Two
}

// topRanks returns the n highest ranks in the mask, descending.
func topRanks(mask uint16, n int) [5]deck.Rank {
	var out [5]deck.Rank
	for i := 0; i < n && mask != 0; i++ {
		r := topRank(mask)
		out[i] = r
		mask &^= bitOf(r)
	}
	return out
}

func describe(cat Category, ranks [5]deck.Rank) string {
	switch cat {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s High", highWord(ranks[0]))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", ranks[0].Name())
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", ranks[0].Name(), ranks[1].Name())
	case Flush:
		return fmt.Sprintf("Flush, %s High", highWord(ranks[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s High", highWord(ranks[0]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", ranks[0].Name())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", ranks[0].Name(), ranks[1].Name())
	case Pair:
		return fmt.Sprintf("Pair of %s", ranks[0].Name())
	default:
		return fmt.Sprintf("%s High", highWord(ranks[0]))
	}
}

// highWord is the singular rank word used in "X High" descriptions.
func highWord(r deck.Rank) string {
	switch r {
	case deck.Ten:
		return "Ten"
	case deck.Jack:
		return "Jack"
	case deck.Queen:
		return "Queen"
	case deck.King:
		return "King"
	case deck.Ace:
		return "Ace"
	default:
		if r >= deck.Two && r <= deck.Nine {
			words := [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
			return words[r-deck.Two]
		}
		return "?"
	}
}
