package game

import (
	"time"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
)

// EventType identifies a game event.
type EventType string

const (
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventHandStarted      EventType = "hand_started"
	EventHoleCardsDealt   EventType = "hole_cards_dealt"
	EventBlindsPosted     EventType = "blinds_posted"
	EventActionTaken      EventType = "action_taken"
	EventFlopDealt        EventType = "flop_dealt"
	EventTurnDealt        EventType = "turn_dealt"
	EventRiverDealt       EventType = "river_dealt"
	EventShowdownComplete EventType = "showdown_complete"
	EventHandComplete     EventType = "hand_complete"
	EventPlayerTimeout    EventType = "player_timeout"
	EventTableQuarantined EventType = "table_quarantined"

	// Controller-synthesized turn notices. These fan out to sessions
	// but are never recorded in replays.
	EventTurnStarted EventType = "turn_started"
	EventTurnWarning EventType = "turn_warning"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// PostedBlinds carries the blind posts of a new hand.
type PostedBlinds struct {
	SmallBlindSeat   string `json:"smallBlindSeat"`
	SmallBlindAmount int    `json:"smallBlindAmount"`
	BigBlindSeat     string `json:"bigBlindSeat"`
	BigBlindAmount   int    `json:"bigBlindAmount"`
}

// Winner is one pot award at hand end.
type Winner struct {
	SeatID   string `json:"seatId"`
	PotIndex int    `json:"pot"`
	Amount   int    `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

// ShowdownHand is a revealed hand at showdown. Showdown reveals are
// public and survive every projection.
type ShowdownHand struct {
	SeatID      string      `json:"seatId"`
	HoleCards   []deck.Card `json:"holeCards"`
	Description string      `json:"description"`
}

// DecisionContext captures what the acting seat knew when it decided,
// recorded alongside action_taken events for replay analysis.
type DecisionContext struct {
	PossibleActions []ValidAction `json:"possibleActions"`
	TimeToDecide    time.Duration `json:"timeToDecide"`
	PotOdds         float64       `json:"potOdds,omitempty"`
	EffectiveStack  int           `json:"effectiveStack,omitempty"`
}

// Event is a single entry of a table's event stream. One struct covers
// every event type; the optional fields are set per type. Events are
// cloned on emission so subscribers never alias engine state.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	HandNumber int       `json:"handNumber,omitempty"`
	Phase      Phase     `json:"phase"`

	SeatID     string                 `json:"seatId,omitempty"`
	SeatName   string                 `json:"seatName,omitempty"`
	Action     *TakenAction           `json:"action,omitempty"`
	Cards      []deck.Card            `json:"cards,omitempty"`
	HoleCards  map[string][]deck.Card `json:"holeCards,omitempty"`
	Blinds     *PostedBlinds          `json:"blinds,omitempty"`
	PotTotal   int                    `json:"potTotal,omitempty"`
	Button     int                    `json:"button,omitempty"`
	Winners    []Winner               `json:"winners,omitempty"`
	Showdown   []ShowdownHand         `json:"showdown,omitempty"`
	ChipCounts map[string]int         `json:"chipCounts,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Decision   *DecisionContext       `json:"decision,omitempty"`

	// Turn notice fields, only on turn_started / turn_warning.
	TimeLimit     time.Duration `json:"timeLimit,omitempty"`
	TimeRemaining time.Duration `json:"timeRemaining,omitempty"`
}

// Clone deep-copies the event so holders cannot reach shared state.
func (e Event) Clone() Event {
	out := e
	if e.Action != nil {
		action := *e.Action
		out.Action = &action
	}
	if e.Cards != nil {
		out.Cards = append([]deck.Card(nil), e.Cards...)
	}
	if e.HoleCards != nil {
		out.HoleCards = make(map[string][]deck.Card, len(e.HoleCards))
		for id, cards := range e.HoleCards {
			out.HoleCards[id] = append([]deck.Card(nil), cards...)
		}
	}
	if e.Blinds != nil {
		blinds := *e.Blinds
		out.Blinds = &blinds
	}
	if e.Winners != nil {
		out.Winners = append([]Winner(nil), e.Winners...)
	}
	if e.Showdown != nil {
		out.Showdown = make([]ShowdownHand, len(e.Showdown))
		for i, sh := range e.Showdown {
			out.Showdown[i] = sh
			out.Showdown[i].HoleCards = append([]deck.Card(nil), sh.HoleCards...)
		}
	}
	if e.ChipCounts != nil {
		out.ChipCounts = make(map[string]int, len(e.ChipCounts))
		for id, n := range e.ChipCounts {
			out.ChipCounts[id] = n
		}
	}
	if e.Decision != nil {
		decision := *e.Decision
		decision.PossibleActions = append([]ValidAction(nil), e.Decision.PossibleActions...)
		out.Decision = &decision
	}
	return out
}
