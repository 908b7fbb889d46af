package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/evaluator"
)

func strength(t *testing.T, cards string) evaluator.HandStrength {
	t.Helper()
	hs, err := evaluator.Evaluate(deck.MustParseCards(cards))
	require.NoError(t, err)
	return hs
}

func TestFormPotsSinglePot(t *testing.T) {
	t.Parallel()

	seats := []*Seat{
		{ID: "a", TotalBet: 100},
		{ID: "b", TotalBet: 100},
		{ID: "c", TotalBet: 100},
	}
	pots := FormPots(seats)
	require.Len(t, pots, 1)
	assert.Equal(t, 300, pots[0].Amount)
	assert.True(t, pots[0].Main)
	assert.Equal(t, []string{"a", "b", "c"}, pots[0].Eligible)
}

func TestFormPotsSidePots(t *testing.T) {
	t.Parallel()

	// a all-in for 100, b all-in for 200, c covers both with 500.
	seats := []*Seat{
		{ID: "a", TotalBet: 100, AllIn: true},
		{ID: "b", TotalBet: 200, AllIn: true},
		{ID: "c", TotalBet: 500},
	}
	pots := FormPots(seats)
	require.Len(t, pots, 3)

	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []string{"a", "b", "c"}, pots[0].Eligible)
	assert.True(t, pots[0].Main)

	assert.Equal(t, 200, pots[1].Amount)
	assert.Equal(t, []string{"b", "c"}, pots[1].Eligible)
	assert.False(t, pots[1].Main)

	assert.Equal(t, 300, pots[2].Amount)
	assert.Equal(t, []string{"c"}, pots[2].Eligible)
}

func TestFormPotsFoldedMoneyStays(t *testing.T) {
	t.Parallel()

	// b folded after committing 60; the money stays in the layers but b
	// is never eligible.
	seats := []*Seat{
		{ID: "a", TotalBet: 100},
		{ID: "b", TotalBet: 60, Folded: true},
		{ID: "c", TotalBet: 100},
	}
	pots := FormPots(seats)
	require.Len(t, pots, 2)

	assert.Equal(t, 180, pots[0].Amount)
	assert.Equal(t, []string{"a", "c"}, pots[0].Eligible)
	assert.Equal(t, 80, pots[1].Amount)
	assert.Equal(t, []string{"a", "c"}, pots[1].Eligible)

	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	assert.Equal(t, 260, total)
}

func TestFormPotsEmptyLedger(t *testing.T) {
	t.Parallel()
	assert.Nil(t, FormPots([]*Seat{{ID: "a"}, {ID: "b"}}))
}

func TestDistributeBestHandTakesPot(t *testing.T) {
	t.Parallel()

	seats := []*Seat{{ID: "a"}, {ID: "b"}}
	pots := []Pot{{Amount: 200, Eligible: []string{"a", "b"}, Main: true}}
	strengths := map[string]evaluator.HandStrength{
		"a": strength(t, "AsAhKdKc9s"), // two pair
		"b": strength(t, "QsQh9d7c5s"), // pair
	}

	payouts, winners, err := Distribute(pots, strengths, seats, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 200}, payouts)
	require.Len(t, winners, 1)
	assert.Equal(t, "a", winners[0].SeatID)
	assert.Equal(t, 200, winners[0].Amount)
	assert.Equal(t, 0, winners[0].PotIndex)
}

func TestDistributeOddChipFirstAfterButton(t *testing.T) {
	t.Parallel()

	// Three-way tie over 100 chips with the button on seat 1: seat 2 is
	// first after the button and takes the extra chip.
	seats := []*Seat{{ID: "a", Position: 0}, {ID: "b", Position: 1}, {ID: "c", Position: 2}}
	pots := []Pot{{Amount: 100, Eligible: []string{"a", "b", "c"}, Main: true}}
	board := strength(t, "AhKhQhJhTh") // everyone plays the board
	strengths := map[string]evaluator.HandStrength{"a": board, "b": board, "c": board}

	payouts, _, err := Distribute(pots, strengths, seats, 1)
	require.NoError(t, err)
	assert.Equal(t, 34, payouts["c"])
	assert.Equal(t, 33, payouts["a"])
	assert.Equal(t, 33, payouts["b"])
}

func TestDistributeSidePotsByLayer(t *testing.T) {
	t.Parallel()

	// a has the best hand but is only eligible for the main pot; b takes
	// the side pot uncontested against c.
	seats := []*Seat{{ID: "a", Position: 0}, {ID: "b", Position: 1}, {ID: "c", Position: 2}}
	pots := []Pot{
		{Amount: 300, Eligible: []string{"a", "b", "c"}, Main: true},
		{Amount: 200, Eligible: []string{"b", "c"}},
	}
	strengths := map[string]evaluator.HandStrength{
		"a": strength(t, "9s9h9d9cKs"), // quads
		"b": strength(t, "KsKhKdTsTh"), // full house
		"c": strength(t, "QsQh9d7c5s"), // pair
	}

	payouts, _, err := Distribute(pots, strengths, seats, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 300, "b": 200}, payouts)
}

func TestDistributeOrphanPotSplitsAmongRemaining(t *testing.T) {
	t.Parallel()

	// Nobody eligible for the layer has a recorded strength; the pot
	// falls back to the seats still in the hand.
	seats := []*Seat{{ID: "a", Position: 0}, {ID: "b", Position: 1, Folded: true}}
	pots := []Pot{{Amount: 50, Eligible: []string{"b"}, Main: true}}

	payouts, _, err := Distribute(pots, map[string]evaluator.HandStrength{}, seats, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 50}, payouts)
}

func TestDistributeUndistributable(t *testing.T) {
	t.Parallel()

	seats := []*Seat{{ID: "a", Folded: true}}
	pots := []Pot{{Amount: 50, Eligible: nil, Main: true}}

	_, _, err := Distribute(pots, map[string]evaluator.HandStrength{}, seats, 0)
	assert.ErrorIs(t, err, ErrUndistributablePot)
}
