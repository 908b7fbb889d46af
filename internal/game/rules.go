package game

import (
	"errors"
	"fmt"
)

// ErrActionRejected is the sentinel wrapped by every Rejection, so
// callers can test the whole family with errors.Is.
var ErrActionRejected = errors.New("action rejected")

// RejectReason is a stable machine-readable reason code carried across
// the wire with ACTION_REJECTED errors.
type RejectReason string

const (
	ReasonNoActionPending   RejectReason = "no_action_pending"
	ReasonNotYourTurn       RejectReason = "not_your_turn"
	ReasonCannotCheck       RejectReason = "cannot_check"
	ReasonNothingToCall     RejectReason = "nothing_to_call"
	ReasonBetNotAllowed     RejectReason = "bet_not_allowed"
	ReasonBetTooSmall       RejectReason = "bet_too_small"
	ReasonRaiseNotAllowed   RejectReason = "raise_not_allowed"
	ReasonRaiseTooSmall     RejectReason = "raise_too_small"
	ReasonRaiseNotReopened  RejectReason = "raise_not_reopened"
	ReasonInsufficientChips RejectReason = "insufficient_chips"
	ReasonNoChips           RejectReason = "no_chips"
)

// Rejection explains why an action is illegal. It never accompanies a
// state change.
type Rejection struct {
	Reason  RejectReason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("action rejected (%s): %s", r.Reason, r.Message)
}

// Is makes errors.Is(err, ErrActionRejected) true for any Rejection.
func (r *Rejection) Is(target error) bool {
	return target == ErrActionRejected
}

func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ValidateAction decides whether the action is legal against the
// current table state. It never mutates.
//
// Raise amounts are raise-to totals. A raise below the minimum is
// legal only when it puts the seat all-in, and such a short all-in
// does not reopen the betting: seats that already acted keep HasActed
// and may only call or fold, which is enforced by the reopen check
// here (full raises clear HasActed for everyone else).
func ValidateAction(t *Table, a Action) error {
	if !t.Phase.Betting() || t.ToAct < 0 {
		return reject(ReasonNoActionPending, "no action pending in phase %s", t.Phase)
	}
	seat := t.Seats[t.ToAct]
	if a.SeatID != seat.ID {
		return reject(ReasonNotYourTurn, "action is on %s", seat.ID)
	}
	toCall := t.CurrentBet - seat.CurrentBet

	switch a.Type {
	case ActionFold:
		return nil

	case ActionCheck:
		if toCall != 0 {
			return reject(ReasonCannotCheck, "facing %d, call or fold", toCall)
		}
		return nil

	case ActionCall:
		if toCall <= 0 {
			return reject(ReasonNothingToCall, "nothing to call, check instead")
		}
		return nil

	case ActionBet:
		if t.CurrentBet != 0 {
			return reject(ReasonBetNotAllowed, "facing a bet of %d, raise instead", t.CurrentBet)
		}
		if a.Amount <= 0 {
			return reject(ReasonBetTooSmall, "bet must be positive")
		}
		if a.Amount > seat.Chips {
			return reject(ReasonInsufficientChips, "bet %d exceeds stack %d", a.Amount, seat.Chips)
		}
		if a.Amount < t.BigBlind && a.Amount != seat.Chips {
			return reject(ReasonBetTooSmall, "minimum bet is %d", t.BigBlind)
		}
		return nil

	case ActionRaise:
		if t.CurrentBet == 0 {
			return reject(ReasonRaiseNotAllowed, "nothing to raise, bet instead")
		}
		if seat.HasActed {
			return reject(ReasonRaiseNotReopened, "betting was not reopened since your last action")
		}
		maxTo := seat.CurrentBet + seat.Chips
		if a.Amount > maxTo {
			return reject(ReasonInsufficientChips, "raise to %d exceeds stack, max %d", a.Amount, maxTo)
		}
		if a.Amount <= t.CurrentBet {
			return reject(ReasonRaiseTooSmall, "raise must exceed the current bet of %d", t.CurrentBet)
		}
		if a.Amount < t.CurrentBet+t.MinRaise && a.Amount != maxTo {
			return reject(ReasonRaiseTooSmall, "minimum raise is to %d", t.CurrentBet+t.MinRaise)
		}
		return nil

	case ActionAllIn:
		if seat.Chips == 0 {
			return reject(ReasonNoChips, "no chips remaining")
		}
		return nil

	default:
		return reject(ReasonNoActionPending, "unknown action type")
	}
}

// PossibleActions returns the closed set of legal actions with amount
// bounds for the given seat. Empty when the action is not on them.
func PossibleActions(t *Table, seatID string) []ValidAction {
	if !t.Phase.Betting() || t.ToAct < 0 {
		return nil
	}
	seat := t.Seats[t.ToAct]
	if seat.ID != seatID {
		return nil
	}

	actions := []ValidAction{{Type: ActionFold}}
	toCall := t.CurrentBet - seat.CurrentBet
	maxTo := seat.CurrentBet + seat.Chips

	if toCall == 0 {
		actions = append(actions, ValidAction{Type: ActionCheck})
		if t.CurrentBet == 0 && seat.Chips > 0 {
			actions = append(actions, ValidAction{
				Type: ActionBet,
				Min:  min(t.BigBlind, seat.Chips),
				Max:  seat.Chips,
			})
		}
	} else {
		call := min(toCall, seat.Chips)
		actions = append(actions, ValidAction{Type: ActionCall, Min: call, Max: call})
	}

	if t.CurrentBet > 0 && !seat.HasActed && seat.Chips > toCall {
		actions = append(actions, ValidAction{
			Type: ActionRaise,
			Min:  min(t.CurrentBet+t.MinRaise, maxTo),
			Max:  maxTo,
		})
	}
	if seat.Chips > 0 {
		actions = append(actions, ValidAction{Type: ActionAllIn, Min: maxTo, Max: maxTo})
	}
	return actions
}

// ForcedAction is what a seat does when its turn budget expires: check
// when free, otherwise fold.
func ForcedAction(t *Table, seatID string) Action {
	a := Action{SeatID: seatID, Type: ActionFold}
	if seat, _ := t.SeatByID(seatID); seat != nil && t.CurrentBet == seat.CurrentBet {
		a.Type = ActionCheck
	}
	return a
}
