package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

var (
	// ErrEmptyDeck is returned when a single-card deal finds no cards.
	ErrEmptyDeck = errors.New("deck is empty")
	// ErrInsufficientCards is returned when a multi-card deal would
	// exhaust the deck.
	ErrInsufficientCards = errors.New("not enough cards remaining")
	// ErrDeckInvalid indicates the 52-card accounting is broken. This
	// is fatal for the table that observes it.
	ErrDeckInvalid = errors.New("deck invalid")
)

// Deck holds the remaining cards of a single 52-card deck plus the
// dealt tail (burned cards count as dealt). Every card appears exactly
// once across the two.
type Deck struct {
	remaining []Card
	dealt     []Card
	rng       *rand.Rand
}

// New creates a full ordered deck drawing shuffle randomness from rng.
// Callers seed rng via randutil so play is reproducible.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		remaining: make([]Card, 0, 52),
		dealt:     make([]Card, 0, 52),
		rng:       rng,
	}
	d.fill()
	return d
}

func (d *Deck) fill() {
	d.remaining = d.remaining[:0]
	d.dealt = d.dealt[:0]
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.remaining = append(d.remaining, NewCard(suit, rank))
		}
	}
}

// Reset restores all 52 cards in canonical order and empties the dealt
// tail. Called at the start of every hand, followed by Shuffle.
func (d *Deck) Reset() {
	d.fill()
}

// Shuffle performs a Fisher-Yates permutation of the remaining cards.
func (d *Deck) Shuffle() {
	for i := len(d.remaining) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.remaining[i], d.remaining[j] = d.remaining[j], d.remaining[i]
	}
}

// DealCard deals the top card.
func (d *Deck) DealCard() (Card, error) {
	if len(d.remaining) == 0 {
		return Card{}, ErrEmptyDeck
	}
	return d.take(), nil
}

// DealCards deals n cards from the top.
func (d *Deck) DealCards(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d cards: %w", n, ErrInsufficientCards)
	}
	if n > len(d.remaining) {
		return nil, fmt.Errorf("deal %d cards with %d remaining: %w", n, len(d.remaining), ErrInsufficientCards)
	}
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = d.take()
	}
	return cards, nil
}

// DealHoleCards deals two cards to each of k seats in around-the-table
// order: one card to every seat, then the second.
func (d *Deck) DealHoleCards(k int) ([][2]Card, error) {
	if k <= 0 {
		return nil, fmt.Errorf("deal hole cards to %d seats: %w", k, ErrInsufficientCards)
	}
	if 2*k > len(d.remaining) {
		return nil, fmt.Errorf("deal hole cards to %d seats with %d remaining: %w", k, len(d.remaining), ErrInsufficientCards)
	}
	pairs := make([][2]Card, k)
	for round := 0; round < 2; round++ {
		for seat := 0; seat < k; seat++ {
			pairs[seat][round] = d.take()
		}
	}
	return pairs, nil
}

// Burn discards the top card face down.
func (d *Deck) Burn() error {
	if len(d.remaining) == 0 {
		return fmt.Errorf("burn: %w", ErrEmptyDeck)
	}
	d.take()
	return nil
}

// DealFlop burns one card and deals three.
func (d *Deck) DealFlop() ([]Card, error) {
	if len(d.remaining) < 4 {
		return nil, fmt.Errorf("deal flop with %d remaining: %w", len(d.remaining), ErrInsufficientCards)
	}
	d.take()
	return []Card{d.take(), d.take(), d.take()}, nil
}

// DealTurn burns one card and deals one.
func (d *Deck) DealTurn() (Card, error) {
	return d.burnAndDealOne("turn")
}

// DealRiver burns one card and deals one.
func (d *Deck) DealRiver() (Card, error) {
	return d.burnAndDealOne("river")
}

func (d *Deck) burnAndDealOne(street string) (Card, error) {
	if len(d.remaining) < 2 {
		return Card{}, fmt.Errorf("deal %s with %d remaining: %w", street, len(d.remaining), ErrInsufficientCards)
	}
	d.take()
	return d.take(), nil
}

func (d *Deck) take() Card {
	card := d.remaining[0]
	d.remaining = d.remaining[1:]
	d.dealt = append(d.dealt, card)
	return card
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.remaining)
}

// DealtCount returns the number of dealt cards, burns included.
func (d *Deck) DealtCount() int {
	return len(d.dealt)
}

// Validate confirms that dealt and remaining together form exactly one
// complete 52-card deck with no duplicates.
func (d *Deck) Validate() error {
	if len(d.remaining)+len(d.dealt) != 52 {
		return fmt.Errorf("%w: %d remaining + %d dealt != 52", ErrDeckInvalid, len(d.remaining), len(d.dealt))
	}
	seen := make(map[Card]bool, 52)
	for _, c := range d.remaining {
		if seen[c] {
			return fmt.Errorf("%w: duplicate card %s", ErrDeckInvalid, c)
		}
		seen[c] = true
	}
	for _, c := range d.dealt {
		if seen[c] {
			return fmt.Errorf("%w: duplicate card %s", ErrDeckInvalid, c)
		}
		seen[c] = true
	}
	return nil
}
