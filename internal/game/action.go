package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType enumerates the actions a seat can take when the action is
// on them.
type ActionType int

const (
	ActionFold ActionType = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

// String returns the wire form of the action type.
func (a ActionType) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionBet:
		return "bet"
	case ActionRaise:
		return "raise"
	case ActionAllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// ParseActionType parses the wire form of an action type.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "fold":
		return ActionFold, nil
	case "check":
		return ActionCheck, nil
	case "call":
		return ActionCall, nil
	case "bet":
		return ActionBet, nil
	case "raise":
		return ActionRaise, nil
	case "all-in":
		return ActionAllIn, nil
	default:
		return 0, fmt.Errorf("unknown action type %q", s)
	}
}

// MarshalJSON renders the wire string.
func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the wire string.
func (a *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Action is a seat's intended action as submitted by its session. For
// bets the amount is the bet size; for raises it is the raise-to total
// for the round. Calls, checks, folds and all-ins carry no amount.
type Action struct {
	SeatID string     `json:"seatId"`
	Type   ActionType `json:"type"`
	Amount int        `json:"amount,omitempty"`
	At     time.Time  `json:"at,omitempty"`
}

// TakenAction describes what an accepted action actually did after
// clamping, e.g. a call for less that became an all-in.
type TakenAction struct {
	Type   ActionType `json:"type"`
	Amount int        `json:"amount,omitempty"`
	AllIn  bool       `json:"allIn,omitempty"`
}

// ValidAction is one legal action with its amount bounds. Bounds are
// raise-to totals for raises and bet sizes for bets; zero for actions
// that carry no amount.
type ValidAction struct {
	Type ActionType `json:"type"`
	Min  int        `json:"min,omitempty"`
	Max  int        `json:"max,omitempty"`
}
