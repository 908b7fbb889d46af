package bot

import (
	"math/rand/v2"

	"github.com/EL-MTN/PokaiEngine-sub002/sdk"
)

// Random picks uniformly among the legal actions, with a uniform
// amount inside the chosen action's bounds. Good for shaking loose
// edge cases in long spawn runs.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random with a seeded generator for reproducible
// runs.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, 0))}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Decide(_ *sdk.GameState, actions []sdk.ValidAction) (string, int) {
	if len(actions) == 0 {
		return sdk.ActionFold, 0
	}
	pick := actions[r.rng.IntN(len(actions))]
	amount := pick.Min
	if pick.Max > pick.Min {
		amount = pick.Min + r.rng.IntN(pick.Max-pick.Min+1)
	}
	return pick.Type, amount
}
