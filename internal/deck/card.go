// Package deck provides the card types and the per-hand dealing state
// for a single 52-card deck, including burn handling for board streets.
package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the suit's display symbol.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Letter returns the single-letter wire form of the suit.
func (s Suit) Letter() string {
	switch s {
	case Spades:
		return "S"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	default:
		return "?"
	}
}

// IsRed returns true for Hearts and Diamonds.
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

func suitFromLetter(letter string) (Suit, error) {
	switch letter {
	case "S", "s":
		return Spades, nil
	case "H", "h":
		return Hearts, nil
	case "D", "d":
		return Diamonds, nil
	case "C", "c":
		return Clubs, nil
	default:
		return 0, fmt.Errorf("invalid suit %q", letter)
	}
}

// Rank represents a card rank. Values run 2..14 so the numeric value
// doubles as the comparison value, with aces high.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the single-character rank symbol.
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the spoken rank name, used in hand descriptions.
func (r Rank) Name() string {
	switch r {
	case Two:
		return "Twos"
	case Three:
		return "Threes"
	case Four:
		return "Fours"
	case Five:
		return "Fives"
	case Six:
		return "Sixes"
	case Seven:
		return "Sevens"
	case Eight:
		return "Eights"
	case Nine:
		return "Nines"
	case Ten:
		return "Tens"
	case Jack:
		return "Jacks"
	case Queen:
		return "Queens"
	case King:
		return "Kings"
	case Ace:
		return "Aces"
	default:
		return "?"
	}
}

// Valid reports whether the rank is in the playable 2..14 range.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card is an immutable playing card. Equality is by value.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a card.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the display form, e.g. "A♠".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Code returns the compact two-character form, e.g. "As".
func (c Card) Code() string {
	letters := map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}
	return c.Rank.String() + letters[c.Suit]
}

// IsRed returns true if the card's suit is red.
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

type cardWire struct {
	Suit string `json:"suit"`
	Rank int    `json:"rank"`
}

// MarshalJSON renders the wire form {"suit":"H","rank":2..14}.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardWire{Suit: c.Suit.Letter(), Rank: int(c.Rank)})
}

// UnmarshalJSON parses the wire form, rejecting out-of-range values.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w cardWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	suit, err := suitFromLetter(w.Suit)
	if err != nil {
		return err
	}
	rank := Rank(w.Rank)
	if !rank.Valid() {
		return fmt.Errorf("invalid rank %d", w.Rank)
	}
	c.Suit = suit
	c.Rank = rank
	return nil
}
