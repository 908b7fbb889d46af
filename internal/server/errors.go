package server

import (
	"errors"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/auth"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// ErrorCode is the stable wire code carried on error replies.
type ErrorCode string

const (
	CodeAuthRequired     ErrorCode = "AUTH_REQUIRED"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeActionRejected   ErrorCode = "ACTION_REJECTED"
	CodeGameNotFound     ErrorCode = "GAME_NOT_FOUND"
	CodeAlreadyInGame    ErrorCode = "ALREADY_IN_GAME"
	CodeTableFull        ErrorCode = "TABLE_FULL"
	CodeUnknownSeat      ErrorCode = "UNKNOWN_SEAT"
	CodePrecondition     ErrorCode = "PRECONDITION_FAILED"
	CodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeEngineCorrupt    ErrorCode = "ENGINE_CORRUPT"
	CodeInternal         ErrorCode = "INTERNAL"
)

// codeFor maps a domain error onto its wire code. The mapping lives
// here and nowhere else.
func codeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return CodeAuthInvalid
	case errors.Is(err, game.ErrActionRejected):
		return CodeActionRejected
	case errors.Is(err, controller.ErrGameNotFound):
		return CodeGameNotFound
	case errors.Is(err, controller.ErrAlreadyInGame):
		return CodeAlreadyInGame
	case errors.Is(err, game.ErrTableFull):
		return CodeTableFull
	case errors.Is(err, game.ErrUnknownSeat), errors.Is(err, controller.ErrNotInGame):
		return CodeUnknownSeat
	case errors.Is(err, controller.ErrPreconditionFailed),
		errors.Is(err, game.ErrGameRunning),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrDuplicateSeat):
		return CodePrecondition
	case errors.Is(err, game.ErrEngineCorrupt):
		return CodeEngineCorrupt
	default:
		return CodeInternal
	}
}

// errorData builds the payload for a failed request, carrying the
// rejection reason code when the engine supplied one.
func errorData(err error) ErrorData {
	data := ErrorData{Code: codeFor(err), Message: err.Error()}
	var rej *game.Rejection
	if errors.As(err, &rej) {
		data.Reason = string(rej.Reason)
	}
	return data
}
