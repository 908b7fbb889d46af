package game

import (
	"encoding/json"
	"fmt"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
)

// Phase is the table's position in the hand lifecycle.
type Phase int

const (
	WaitingForPlayers Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
	HandComplete
)

// String returns the wire form of the phase.
func (p Phase) String() string {
	switch p {
	case WaitingForPlayers:
		return "waiting"
	case PreFlop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case HandComplete:
		return "hand_complete"
	default:
		return "unknown"
	}
}

// ParsePhase parses the wire form of a phase.
func ParsePhase(s string) (Phase, error) {
	for p := WaitingForPlayers; p <= HandComplete; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// MarshalJSON renders the wire string.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses the wire string.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// InHand reports whether a hand is live in this phase.
func (p Phase) InHand() bool {
	return p >= PreFlop && p <= Showdown
}

// Betting reports whether seats act in this phase.
func (p Phase) Betting() bool {
	return p >= PreFlop && p <= River
}

// Table is the authoritative state of one table. It is mutated in
// place hand by hand by its owning Engine; everything outbound is a
// projected Snapshot, never the Table itself.
type Table struct {
	GameID     string
	Phase      Phase
	HandNumber int

	Button int
	SBPos  int
	BBPos  int

	SmallBlind int
	BigBlind   int

	// Round betting state. CurrentBet is the round's high bet;
	// MinRaise the increment a full raise must add. LastAggressor is
	// the seat index of the last full raiser, -1 when unopened.
	CurrentBet    int
	MinRaise      int
	LastAggressor int

	Board []deck.Card
	Seats []*Seat
	Pots  []Pot

	// ToAct is the index of the seat due to act, -1 when none.
	ToAct int
}

// NewTable creates an empty table in the waiting phase.
func NewTable(gameID string, smallBlind, bigBlind int) *Table {
	return &Table{
		GameID:        gameID,
		Phase:         WaitingForPlayers,
		SmallBlind:    smallBlind,
		BigBlind:      bigBlind,
		LastAggressor: -1,
		ToAct:         -1,
	}
}

// SeatByID returns the seat with the given id and its index, or nil
// and -1.
func (t *Table) SeatByID(id string) (*Seat, int) {
	for i, s := range t.Seats {
		if s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

// nextActive returns the index of the first seat at or after from (mod
// table size) that can still act, or -1.
func (t *Table) nextActive(from int) int {
	n := len(t.Seats)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		pos := ((from+i)%n + n) % n
		if t.Seats[pos].Active() {
			return pos
		}
	}
	return -1
}

// remainingInHand counts seats that have not folded.
func (t *Table) remainingInHand() int {
	count := 0
	for _, s := range t.Seats {
		if s.InHand() {
			count++
		}
	}
	return count
}

// PotTotal is the total money committed this hand, collected or not.
func (t *Table) PotTotal() int {
	total := 0
	for _, s := range t.Seats {
		total += s.TotalBet
	}
	return total
}

// ToActSeat returns the seat due to act, or nil.
func (t *Table) ToActSeat() *Seat {
	if t.ToAct < 0 || t.ToAct >= len(t.Seats) {
		return nil
	}
	return t.Seats[t.ToAct]
}

// resetRound clears per-round betting state on street entry.
func (t *Table) resetRound() {
	for _, s := range t.Seats {
		s.CurrentBet = 0
		s.HasActed = false
	}
	t.CurrentBet = 0
	t.MinRaise = t.BigBlind
	t.LastAggressor = -1
}

// removeSeatAt detaches the seat at index i, renumbering positions and
// keeping the button pointed at the same physical seat where possible.
func (t *Table) removeSeatAt(i int) {
	t.Seats = append(t.Seats[:i], t.Seats[i+1:]...)
	for pos, s := range t.Seats {
		s.Position = pos
	}
	if t.Button > i || t.Button >= len(t.Seats) {
		t.Button--
	}
	if t.Button < 0 {
		t.Button = 0
	}
}

// roundComplete reports whether the current betting round is closed:
// every seat that can still act has acted and matched the high bet, or
// at most one seat remains in the hand. Blind posts do not count as
// acting, which is what gives the big blind its preflop option.
func roundComplete(t *Table) bool {
	if t.remainingInHand() <= 1 {
		return true
	}
	for _, s := range t.Seats {
		if s.Active() && (!s.HasActed || s.CurrentBet != t.CurrentBet) {
			return false
		}
	}
	return true
}
