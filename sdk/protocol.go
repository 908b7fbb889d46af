package sdk

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the wire type of an envelope.
type MessageType string

// Request types.
const (
	TypeAuthLogin    MessageType = "auth.login"
	TypeGameList     MessageType = "game.list"
	TypeGameJoin     MessageType = "game.join"
	TypeGameLeave    MessageType = "game.leave"
	TypeActionSubmit MessageType = "action.submit"
	TypeStateCurrent MessageType = "state.current"
	TypeStateActions MessageType = "state.actions"
)

// Server-initiated types.
const (
	TypeTurnStart   MessageType = "turn.start"
	TypeTurnWarning MessageType = "turn.warning"
	TypeGameEvent   MessageType = "event.game"
	TypeSystemError MessageType = "system.error"
)

// Success returns the success reply type for a request type.
func (mt MessageType) Success() MessageType { return mt + ".success" }

// Error returns the error reply type for a request type.
func (mt MessageType) Error() MessageType { return mt + ".error" }

// Message is the wire envelope shared with the server.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// Action strings accepted by action.submit.
const (
	ActionFold  = "fold"
	ActionCheck = "check"
	ActionCall  = "call"
	ActionBet   = "bet"
	ActionRaise = "raise"
	ActionAllIn = "all-in"
)

// Card is a playing card in its wire form.
type Card struct {
	Suit string `json:"suit"`
	Rank int    `json:"rank"`
}

var rankLetters = map[int]string{10: "T", 11: "J", 12: "Q", 13: "K", 14: "A"}

// String renders the card as rank then suit, "As" for the ace of
// spades.
func (c Card) String() string {
	r, ok := rankLetters[c.Rank]
	if !ok {
		r = fmt.Sprintf("%d", c.Rank)
	}
	suit := c.Suit
	if len(suit) > 0 {
		suit = string(suit[0] | 0x20)
	}
	return r + suit
}

// SeatState is one seat in a game state snapshot.
type SeatState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Chips      int    `json:"chips"`
	Position   int    `json:"position"`
	CurrentBet int    `json:"currentBet"`
	TotalBet   int    `json:"totalBet"`
	Folded     bool   `json:"folded"`
	AllIn      bool   `json:"allIn"`
	HoleCards  []Card `json:"holeCards,omitempty"`
}

// Pot is one pot layer.
type Pot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
	Main     bool     `json:"main,omitempty"`
}

// GameState is the projected table snapshot a bot sees. Only its own
// hole cards are present before showdown.
type GameState struct {
	GameID     string      `json:"gameId"`
	Phase      string      `json:"phase"`
	HandNumber int         `json:"handNumber"`
	Button     int         `json:"button"`
	SmallBlind int         `json:"smallBlind"`
	BigBlind   int         `json:"bigBlind"`
	CurrentBet int         `json:"currentBet"`
	MinRaise   int         `json:"minRaise"`
	Board      []Card      `json:"board"`
	Pots       []Pot       `json:"pots"`
	PotTotal   int         `json:"potTotal"`
	Seats      []SeatState `json:"seats"`
	ToAct      string      `json:"toAct,omitempty"`
}

// Seat returns the named seat's state, or nil.
func (g *GameState) Seat(id string) *SeatState {
	for i := range g.Seats {
		if g.Seats[i].ID == id {
			return &g.Seats[i]
		}
	}
	return nil
}

// ValidAction is one legal action with its amount bounds.
type ValidAction struct {
	Type string `json:"type"`
	Min  int    `json:"min,omitempty"`
	Max  int    `json:"max,omitempty"`
}

// LoginData is the auth.login payload.
type LoginData struct {
	BotID  string `json:"botId"`
	APIKey string `json:"apiKey,omitempty"`
	Name   string `json:"name,omitempty"`
}

// LoginSuccess is the auth.login.success payload.
type LoginSuccess struct {
	BotID     string `json:"botId"`
	BotName   string `json:"botName"`
	SessionID string `json:"sessionId"`
}

// GameSummary is one entry of game.list.success.
type GameSummary struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	HandNumber int    `json:"handNumber"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	Joinable   bool   `json:"joinable"`
}

// GameListSuccess is the game.list.success payload.
type GameListSuccess struct {
	Games []GameSummary `json:"games"`
}

// JoinData is the game.join payload.
type JoinData struct {
	GameID string `json:"gameId"`
	Chips  int    `json:"chips"`
}

// JoinSuccess is the game.join.success payload.
type JoinSuccess struct {
	GameID string     `json:"gameId"`
	SeatID string     `json:"seatId"`
	State  *GameState `json:"state"`
}

// ActionData is the action.submit payload.
type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// StateSuccess is the state.current.success payload.
type StateSuccess struct {
	State           *GameState    `json:"state"`
	PossibleActions []ValidAction `json:"possibleActions,omitempty"`
	TimeRemainingMs int64         `json:"timeRemainingMs,omitempty"`
}

// ActionsSuccess is the state.actions.success payload.
type ActionsSuccess struct {
	PossibleActions []ValidAction `json:"possibleActions"`
}

// TurnStart is the turn.start payload.
type TurnStart struct {
	GameID      string `json:"gameId"`
	SeatID      string `json:"seatId"`
	TimeLimitMs int64  `json:"timeLimitMs"`
}

// TurnWarning is the turn.warning payload.
type TurnWarning struct {
	GameID          string `json:"gameId"`
	SeatID          string `json:"seatId"`
	TimeRemainingMs int64  `json:"timeRemainingMs"`
}

// GameEvent is the event.game payload. Event stays raw; bots that care
// about a specific event type decode the parts they need.
type GameEvent struct {
	GameID string          `json:"gameId"`
	Event  json.RawMessage `json:"event"`
}

// EventHeader is the part of an event every consumer can decode.
type EventHeader struct {
	Type       string `json:"type"`
	HandNumber int    `json:"handNumber,omitempty"`
	Phase      string `json:"phase"`
	SeatID     string `json:"seatId,omitempty"`
}

// APIError is a failed request: the wire code, the human message and
// the rejection reason code when the engine supplied one.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
