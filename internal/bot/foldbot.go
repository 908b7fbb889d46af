package bot

import "github.com/EL-MTN/PokaiEngine-sub002/sdk"

// Folder checks when free and folds to any bet. Its stack only moves
// through blinds, which makes it a useful control in spawn fleets.
type Folder struct{}

func (Folder) Name() string { return "folder" }

func (Folder) Decide(_ *sdk.GameState, actions []sdk.ValidAction) (string, int) {
	if _, ok := has(actions, sdk.ActionCheck); ok {
		return sdk.ActionCheck, 0
	}
	return sdk.ActionFold, 0
}
