// Package bot holds the built-in strategies used by the spawn command
// and integration tests. Strategies decide from the projected game
// state and the legal action list; they never see hidden cards.
package bot

import (
	"fmt"
	"math/rand/v2"

	"github.com/EL-MTN/PokaiEngine-sub002/sdk"
)

// Strategy picks one legal action. Implementations must return an
// action from the given list with an amount inside its bounds.
type Strategy interface {
	Name() string
	Decide(state *sdk.GameState, actions []sdk.ValidAction) (string, int)
}

// New builds a named strategy. Known names are "folder", "caller" and
// "random".
func New(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "folder":
		return Folder{}, nil
	case "caller":
		return Caller{}, nil
	case "random":
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return &Random{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func has(actions []sdk.ValidAction, typ string) (sdk.ValidAction, bool) {
	for _, a := range actions {
		if a.Type == typ {
			return a, true
		}
	}
	return sdk.ValidAction{}, false
}
