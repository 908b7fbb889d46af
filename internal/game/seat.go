package game

import "github.com/EL-MTN/PokaiEngine-sub002/internal/deck"

// Seat is one player's position at a table. Chips plus TotalBet is
// conserved from the start of a hand until pot distribution.
type Seat struct {
	ID         string
	Name       string
	Chips      int
	Position   int
	CurrentBet int
	TotalBet   int
	Folded     bool
	AllIn      bool
	HasActed   bool
	HoleCards  []deck.Card

	// leaving marks a seat that folded out mid-hand via RemoveSeat;
	// the seat is detached when the hand completes.
	leaving bool
}

// resetForHand clears the per-hand fields while preserving the stack.
func (s *Seat) resetForHand() {
	s.CurrentBet = 0
	s.TotalBet = 0
	s.Folded = false
	s.AllIn = false
	s.HasActed = false
	s.HoleCards = nil
}

// put moves n chips from the stack into the seat's round and hand
// ledgers. Putting the last chip marks the seat all-in.
func (s *Seat) put(n int) {
	s.Chips -= n
	s.CurrentBet += n
	s.TotalBet += n
	if s.Chips == 0 {
		s.AllIn = true
	}
}

// InHand reports whether the seat is still contesting the current hand.
func (s *Seat) InHand() bool {
	return !s.Folded
}

// Active reports whether the seat can still act this round.
func (s *Seat) Active() bool {
	return !s.Folded && !s.AllIn
}
