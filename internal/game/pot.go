package game

import (
	"errors"
	"sort"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/evaluator"
)

// ErrUndistributablePot is fatal: a pot has no eligible seat and no
// in-hand seat to fall back to.
var ErrUndistributablePot = errors.New("pot has no seat to pay")

// Pot is one layer of the hand's money, derived from the per-seat
// contribution ledger at round close. Eligible lists the seat ids, in
// table order, that can win the layer; folded money stays in the
// amount but folded seats are never eligible.
type Pot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
	Main     bool     `json:"main,omitempty"`
}

// FormPots derives the canonical pot layering from each seat's total
// contribution this hand. Distinct contribution levels, ascending,
// each become one layer: the slice between the previous level and this
// one, taken from every seat that reached it. The first layer is the
// main pot.
func FormPots(seats []*Seat) []Pot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if s.TotalBet > 0 {
			levelSet[s.TotalBet] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]int, 0, len(levelSet))
	for lv := range levelSet {
		levels = append(levels, lv)
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, lv := range levels {
		pot := Pot{Main: len(pots) == 0}
		for _, s := range seats {
			low := min(s.TotalBet, prev)
			high := min(s.TotalBet, lv)
			pot.Amount += high - low
			if !s.Folded && s.TotalBet >= lv {
				pot.Eligible = append(pot.Eligible, s.ID)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = lv
	}
	return pots
}

// Distribute awards each pot to the best hand among its eligible
// seats. Ties split evenly; odd chips go to the first tied seat after
// the button. A pot whose eligible seats all vanished is split among
// the seats still in the hand; with nobody left it is fatal.
//
// The returned payouts are keyed by seat id; winners lists each pot's
// award for event reporting.
func Distribute(pots []Pot, strengths map[string]evaluator.HandStrength, seats []*Seat, button int) (map[string]int, []Winner, error) {
	payouts := make(map[string]int)
	var winners []Winner

	for i, pot := range pots {
		best := bestSeatIDs(pot.Eligible, strengths)
		if len(best) == 0 {
			for _, s := range seats {
				if s.InHand() {
					best = append(best, s.ID)
				}
			}
		}
		if len(best) == 0 {
			return nil, nil, ErrUndistributablePot
		}

		ordered := orderAfterButton(best, seats, button)
		share := pot.Amount / len(ordered)
		remainder := pot.Amount % len(ordered)
		for k, id := range ordered {
			amount := share
			if k == 0 {
				amount += remainder
			}
			if amount == 0 {
				continue
			}
			payouts[id] += amount
			winners = append(winners, Winner{
				SeatID:   id,
				PotIndex: i,
				Amount:   amount,
				Hand:     strengths[id].Description,
			})
		}
	}
	return payouts, winners, nil
}

// bestSeatIDs returns the eligible seats holding the best strength.
// Eligible seats without a recorded strength are skipped.
func bestSeatIDs(eligible []string, strengths map[string]evaluator.HandStrength) []string {
	var best []string
	var bestStrength evaluator.HandStrength
	for _, id := range eligible {
		hs, ok := strengths[id]
		if !ok {
			continue
		}
		switch {
		case len(best) == 0 || hs.Beats(bestStrength):
			best = best[:0]
			best = append(best, id)
			bestStrength = hs
		case hs.Compare(bestStrength) == 0:
			best = append(best, id)
		}
	}
	return best
}

// orderAfterButton sorts seat ids into post-button rotation order.
func orderAfterButton(ids []string, seats []*Seat, button int) []string {
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	n := len(seats)
	ordered := make([]string, 0, len(ids))
	for i := 1; i <= n; i++ {
		id := seats[(button+i)%n].ID
		if member[id] {
			ordered = append(ordered, id)
		}
	}
	return ordered
}
