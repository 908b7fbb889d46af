package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
)

func eval(t *testing.T, cards string) HandStrength {
	t.Helper()
	hs, err := Evaluate(deck.MustParseCards(cards))
	require.NoError(t, err)
	return hs
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		category Category
		desc     string
	}{
		{"royal flush", "AsKsQsJsTs9h2d", RoyalFlush, "Royal Flush"},
		{"straight flush", "9s8s7s6s5sAhAd", StraightFlush, "Straight Flush, Nine High"},
		{"steel wheel", "5d4d3d2dAd9s8c", StraightFlush, "Straight Flush, Five High"},
		{"four of a kind", "9s9h9d9cKs2h3d", FourOfAKind, "Four of a Kind, Nines"},
		{"full house", "KsKhKdTsTh2c3d", FullHouse, "Full House, Kings over Tens"},
		{"two trips make a house", "KsKhKd7s7h7c2d", FullHouse, "Full House, Kings over Sevens"},
		{"flush", "AhJh9h6h3hKs2d", Flush, "Flush, Ace High"},
		{"straight", "Ts9h8d7c6s2h2d", Straight, "Straight, Ten High"},
		{"wheel", "Ah2d3c4s5h9dKs", Straight, "Straight, Five High"},
		{"trips", "7s7h7dAcKs2h3d", ThreeOfAKind, "Three of a Kind, Sevens"},
		{"two pair", "AsAhKdKc9s2h3d", TwoPair, "Two Pair, Aces and Kings"},
		{"pair", "QsQh9d7c5s3h2d", Pair, "Pair of Queens"},
		{"high card", "AsJh9d7c5s3h2d", HighCard, "Ace High"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := eval(t, tt.cards)
			assert.Equal(t, tt.category, hs.Category)
			assert.Equal(t, tt.desc, hs.Description)
		})
	}
}

func TestCategoryOrdering(t *testing.T) {
	t.Parallel()

	ladder := []string{
		"AsJh9d7c5s3h2d", // high card
		"QsQh9d7c5s3h2d", // pair
		"AsAhKdKc9s2h3d", // two pair
		"7s7h7dAcKs2h3d", // trips
		"Ts9h8d7c6s2h2d", // straight
		"AhJh9h6h3hKs2d", // flush
		"KsKhKdTsTh2c3d", // full house
		"9s9h9d9cKs2h3d", // quads
		"9s8s7s6s5sAhAd", // straight flush
		"AsKsQsJsTs9h2d", // royal
	}

	prev := eval(t, ladder[0])
	for _, cards := range ladder[1:] {
		cur := eval(t, cards)
		assert.True(t, cur.Beats(prev), "%s should beat %s", cur.Description, prev.Description)
		prev = cur
	}
}

func TestKickersDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		winner string
		loser  string
	}{
		{"pair kicker", "QsQhAcKs9d5h3c", "QdQcAhKd8s5s3d"},
		{"two pair kicker", "AsAhKdKcQs2h3d", "AdAcKhKsJs2s3c"},
		{"higher straight", "JhTs9h8d7c2s2h", "6sTs9h8d7c2d2c"},
		{"flush high card", "AhJh9h6h3hKs2d", "KdJd9d6d3dAs2c"},
		{"full house bigger trips", "KsKhKdTsTh2c3d", "QsQhQdAsAh2d3c"},
		{"quads kicker", "9s9h9d9cAs2h3d", "9s9h9d9cKs2h3d"},
		{"six high straight over wheel", "6s5h4d3c2sAhKd", "5d4h3s2cAh9dKs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := eval(t, tt.winner)
			l := eval(t, tt.loser)
			assert.Equal(t, 1, w.Compare(l), "%s should beat %s", w.Description, l.Description)
			assert.Equal(t, -1, l.Compare(w))
		})
	}
}

func TestBoardPlaysSplit(t *testing.T) {
	t.Parallel()

	a := eval(t, "2h3cAsKsQsJsTs")
	b := eval(t, "4d5dAsKsQsJsTs")
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, a.Value, b.Value)
}

func TestEvaluateFiveAndSixCards(t *testing.T) {
	t.Parallel()

	five := eval(t, "AsAhKdKc9s")
	assert.Equal(t, TwoPair, five.Category)

	six := eval(t, "AsAhKdKcTs9d")
	assert.Equal(t, TwoPair, six.Category)
	assert.Equal(t, deck.Ten, six.Ranks[2])
}

func TestThreePairsUseBestKicker(t *testing.T) {
	t.Parallel()

	// Three pairs in seven cards: only the two best pairs play and the
	// kicker comes from everything left, including the third pair.
	hs := eval(t, "AsAh9d9c5s5hKd")
	assert.Equal(t, TwoPair, hs.Category)
	assert.Equal(t, deck.Ace, hs.Ranks[0])
	assert.Equal(t, deck.Nine, hs.Ranks[1])
	assert.Equal(t, deck.King, hs.Ranks[2])
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(deck.MustParseCards("AsKs"))
	assert.ErrorIs(t, err, ErrCardCount)

	_, err = Evaluate(deck.MustParseCards("AsKsQsJsTs9h8d7c"))
	assert.ErrorIs(t, err, ErrCardCount)

	_, err = Evaluate(deck.MustParseCards("AsAsQdJcTh"))
	assert.ErrorIs(t, err, ErrDuplicateCard)
}
