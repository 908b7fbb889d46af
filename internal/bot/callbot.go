package bot

import "github.com/EL-MTN/PokaiEngine-sub002/sdk"

// Caller checks when free and calls any bet, all-in included. It never
// opens the betting.
type Caller struct{}

func (Caller) Name() string { return "caller" }

func (Caller) Decide(_ *sdk.GameState, actions []sdk.ValidAction) (string, int) {
	if _, ok := has(actions, sdk.ActionCheck); ok {
		return sdk.ActionCheck, 0
	}
	if _, ok := has(actions, sdk.ActionCall); ok {
		return sdk.ActionCall, 0
	}
	return sdk.ActionFold, 0
}
