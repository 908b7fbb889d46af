package game

import (
	"time"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
)

// AudienceKind classifies who a projection is for.
type AudienceKind int

const (
	// AudienceSeat sees public state plus its own hole cards.
	AudienceSeat AudienceKind = iota
	// AudienceSpectator sees only public state.
	AudienceSpectator
	// AudienceReplay sees public state; hole cards appear only
	// through showdown reveals.
	AudienceReplay
)

// Audience parameterizes the projection of authoritative state into an
// outbound view. Hole-card secrecy lives entirely in the projection
// functions below, so there is exactly one place to get it right.
type Audience struct {
	Kind   AudienceKind
	SeatID string

	// AtShowdown unlocks the hole cards of seats still in the hand,
	// matching the table reveal.
	AtShowdown bool
}

// SeatAudience is the audience of one seat's session.
func SeatAudience(seatID string) Audience {
	return Audience{Kind: AudienceSeat, SeatID: seatID}
}

// SpectatorAudience sees no hole cards at all.
func SpectatorAudience() Audience {
	return Audience{Kind: AudienceSpectator}
}

// ReplayAudience is what the recorder stores.
func ReplayAudience(atShowdown bool) Audience {
	return Audience{Kind: AudienceReplay, AtShowdown: atShowdown}
}

// sees reports whether the audience may see the hole cards of the
// given seat.
func (a Audience) sees(seat *SeatView) bool {
	if a.Kind == AudienceSeat && a.SeatID == seat.ID {
		return true
	}
	return a.AtShowdown && !seat.Folded
}

// SeatView is a seat as it appears in snapshots.
type SeatView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Chips      int         `json:"chips"`
	Position   int         `json:"position"`
	CurrentBet int         `json:"currentBet"`
	TotalBet   int         `json:"totalBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	HasActed   bool        `json:"hasActed"`
	HoleCards  []deck.Card `json:"holeCards,omitempty"`
}

// Snapshot is a complete copy of a table's public state plus all hole
// cards. It must pass through Project before leaving the engine's
// owner.
type Snapshot struct {
	GameID     string      `json:"gameId"`
	Phase      Phase       `json:"phase"`
	HandNumber int         `json:"handNumber"`
	Button     int         `json:"button"`
	SmallBlind int         `json:"smallBlind"`
	BigBlind   int         `json:"bigBlind"`
	CurrentBet int         `json:"currentBet"`
	MinRaise   int         `json:"minRaise"`
	Board      []deck.Card `json:"board"`
	Pots       []Pot       `json:"pots"`
	PotTotal   int         `json:"potTotal"`
	Seats      []SeatView  `json:"seats"`
	ToAct      string      `json:"toAct,omitempty"`
}

// Snapshot copies the table into a detached value.
func (t *Table) Snapshot() *Snapshot {
	snap := &Snapshot{
		GameID:     t.GameID,
		Phase:      t.Phase,
		HandNumber: t.HandNumber,
		Button:     t.Button,
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		CurrentBet: t.CurrentBet,
		MinRaise:   t.MinRaise,
		Board:      append([]deck.Card(nil), t.Board...),
		PotTotal:   t.PotTotal(),
		Seats:      make([]SeatView, len(t.Seats)),
	}
	snap.Pots = FormPots(t.Seats)
	for i, s := range t.Seats {
		snap.Seats[i] = SeatView{
			ID:         s.ID,
			Name:       s.Name,
			Chips:      s.Chips,
			Position:   s.Position,
			CurrentBet: s.CurrentBet,
			TotalBet:   s.TotalBet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			HasActed:   s.HasActed,
			HoleCards:  append([]deck.Card(nil), s.HoleCards...),
		}
	}
	if seat := t.ToActSeat(); seat != nil {
		snap.ToAct = seat.ID
	}
	return snap
}

// Project returns a copy of the snapshot with every hole card the
// audience may not see removed.
func (s *Snapshot) Project(aud Audience) *Snapshot {
	out := *s
	out.Board = append([]deck.Card(nil), s.Board...)
	out.Pots = append([]Pot(nil), s.Pots...)
	out.Seats = make([]SeatView, len(s.Seats))
	for i, seat := range s.Seats {
		out.Seats[i] = seat
		if aud.sees(&seat) {
			out.Seats[i].HoleCards = append([]deck.Card(nil), seat.HoleCards...)
		} else {
			out.Seats[i].HoleCards = nil
		}
	}
	return &out
}

// Project filters an event for the audience. Only hole_cards_dealt
// carries private cards; showdown reveals are public by definition.
func (e Event) Project(aud Audience) Event {
	out := e.Clone()
	if out.HoleCards == nil {
		return out
	}
	if aud.Kind == AudienceSeat {
		if cards, ok := out.HoleCards[aud.SeatID]; ok {
			out.HoleCards = map[string][]deck.Card{aud.SeatID: cards}
			return out
		}
	}
	out.HoleCards = nil
	return out
}

// BotView is the per-seat state handed to a bot: the projected
// snapshot, its legal actions (empty off-turn), and the remaining turn
// budget.
type BotView struct {
	Snapshot        *Snapshot     `json:"snapshot"`
	PossibleActions []ValidAction `json:"possibleActions,omitempty"`
	TimeRemaining   time.Duration `json:"timeRemaining,omitempty"`
}
