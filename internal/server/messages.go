package server

import (
	"encoding/json"
	"time"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// MessageType is the wire type of an envelope.
type MessageType string

// Client-initiated message types. Replies use the <type>.success and
// <type>.error suffixes.
const (
	TypeAuthLogin    MessageType = "auth.login"
	TypeGameList     MessageType = "game.list"
	TypeGameJoin     MessageType = "game.join"
	TypeGameLeave    MessageType = "game.leave"
	TypeActionSubmit MessageType = "action.submit"
	TypeStateCurrent MessageType = "state.current"
	TypeStateActions MessageType = "state.actions"
)

// Server-initiated message types.
const (
	TypeTurnStart   MessageType = "turn.start"
	TypeTurnWarning MessageType = "turn.warning"
	TypeGameEvent   MessageType = "event.game"
	TypeSystemError MessageType = "system.error"
)

const (
	suffixSuccess = ".success"
	suffixError   = ".error"
)

// Success returns the reply type for this request type.
func (mt MessageType) Success() MessageType { return mt + suffixSuccess }

// Error returns the error reply type for this request type.
func (mt MessageType) Error() MessageType { return mt + suffixError }

// Message is the wire envelope. Data is type-specific; RequestID, when
// the client sets one, is echoed on the reply.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage builds an envelope around a payload.
func NewMessage(mt MessageType, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: mt, Data: raw, Timestamp: time.Now()}, nil
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

// GameListSuccess is the game.list.success payload.
type GameListSuccess struct {
	Games []controller.GameSummary `json:"games"`
}

// JoinData is the game.join payload.
type JoinData struct {
	GameID string `json:"gameId"`
	Chips  int    `json:"chips"`
}

// JoinSuccess is the game.join.success payload.
type JoinSuccess struct {
	GameID string         `json:"gameId"`
	SeatID string         `json:"seatId"`
	State  *game.Snapshot `json:"state"`
}

// LeaveData is the game.leave payload.
type LeaveData struct {
	GameID string `json:"gameId"`
}

// ActionData is the action.submit payload. Amount is the raise-to
// total for raises and the bet size for bets. Action stays a string so
// a missing field is distinguishable from fold.
type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// StateSuccess is the state.current.success payload.
type StateSuccess struct {
	State           *game.Snapshot     `json:"state"`
	PossibleActions []game.ValidAction `json:"possibleActions,omitempty"`
	TimeRemainingMs int64              `json:"timeRemainingMs,omitempty"`
}

// ActionsSuccess is the state.actions.success payload.
type ActionsSuccess struct {
	PossibleActions []game.ValidAction `json:"possibleActions"`
}

// TurnStartData is the turn.start payload pushed to the acting seat.
type TurnStartData struct {
	GameID      string `json:"gameId"`
	SeatID      string `json:"seatId"`
	TimeLimitMs int64  `json:"timeLimitMs"`
}

// TurnWarningData is the turn.warning payload.
type TurnWarningData struct {
	GameID          string `json:"gameId"`
	SeatID          string `json:"seatId"`
	TimeRemainingMs int64  `json:"timeRemainingMs"`
}

// GameEventData wraps a projected engine event for event.game.
type GameEventData struct {
	GameID string     `json:"gameId"`
	Event  game.Event `json:"event"`
}

// ErrorData is the payload of every error reply and system.error.
type ErrorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Reason  string    `json:"reason,omitempty"`
}
