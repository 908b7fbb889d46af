package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/randutil"
)

func newTestDeck(seed int64) *Deck {
	return New(randutil.New(seed))
}

func TestDeckDealsAllFiftyTwo(t *testing.T) {
	t.Parallel()

	d := newTestDeck(1)
	d.Shuffle()

	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c, err := d.DealCard()
		require.NoError(t, err)
		assert.False(t, seen[c], "card %s dealt twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)

	_, err := d.DealCard()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDeckShuffleDeterministic(t *testing.T) {
	t.Parallel()

	a := newTestDeck(42)
	b := newTestDeck(42)
	a.Shuffle()
	b.Shuffle()

	for i := 0; i < 52; i++ {
		ca, err := a.DealCard()
		require.NoError(t, err)
		cb, err := b.DealCard()
		require.NoError(t, err)
		assert.Equal(t, ca, cb, "position %d diverged", i)
	}
}

func TestDealCardsInsufficient(t *testing.T) {
	t.Parallel()

	d := newTestDeck(1)
	_, err := d.DealCards(50)
	require.NoError(t, err)

	_, err = d.DealCards(3)
	assert.ErrorIs(t, err, ErrInsufficientCards)

	got, err := d.DealCards(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDealHoleCardsRoundRobin(t *testing.T) {
	t.Parallel()

	// Unshuffled deck deals in canonical order, so the round-robin
	// pattern is directly observable: first card of each pair comes
	// before every second card.
	d := New(randutil.New(1))

	pairs, err := d.DealHoleCards(3)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	expected := []Card{
		{Suit: Spades, Rank: Two},
		{Suit: Spades, Rank: Three},
		{Suit: Spades, Rank: Four},
		{Suit: Spades, Rank: Five},
		{Suit: Spades, Rank: Six},
		{Suit: Spades, Rank: Seven},
	}
	assert.Equal(t, expected[0], pairs[0][0])
	assert.Equal(t, expected[1], pairs[1][0])
	assert.Equal(t, expected[2], pairs[2][0])
	assert.Equal(t, expected[3], pairs[0][1])
	assert.Equal(t, expected[4], pairs[1][1])
	assert.Equal(t, expected[5], pairs[2][1])
}

func TestDealHoleCardsInsufficient(t *testing.T) {
	t.Parallel()

	d := newTestDeck(1)
	_, err := d.DealCards(49)
	require.NoError(t, err)

	_, err = d.DealHoleCards(2)
	assert.ErrorIs(t, err, ErrInsufficientCards)
}

func TestBoardDealsBurnFirst(t *testing.T) {
	t.Parallel()

	d := New(randutil.New(1))

	flop, err := d.DealFlop()
	require.NoError(t, err)
	require.Len(t, flop, 3)
	// One burn plus three dealt.
	assert.Equal(t, 4, d.DealtCount())
	assert.Equal(t, []Card{
		{Suit: Spades, Rank: Three},
		{Suit: Spades, Rank: Four},
		{Suit: Spades, Rank: Five},
	}, flop)

	turn, err := d.DealTurn()
	require.NoError(t, err)
	assert.Equal(t, Card{Suit: Spades, Rank: Seven}, turn)
	assert.Equal(t, 6, d.DealtCount())

	river, err := d.DealRiver()
	require.NoError(t, err)
	assert.Equal(t, Card{Suit: Spades, Rank: Nine}, river)
	assert.Equal(t, 8, d.DealtCount())
}

func TestDeckValidate(t *testing.T) {
	t.Parallel()

	d := newTestDeck(7)
	d.Shuffle()
	require.NoError(t, d.Validate())

	_, err := d.DealHoleCards(6)
	require.NoError(t, err)
	_, err = d.DealFlop()
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	assert.Equal(t, 52, d.Remaining()+d.DealtCount())

	// Corrupt the accounting and expect the fatal error.
	d.dealt = append(d.dealt, d.dealt[0])
	assert.ErrorIs(t, d.Validate(), ErrDeckInvalid)
}

func TestDeckReset(t *testing.T) {
	t.Parallel()

	d := newTestDeck(7)
	d.Shuffle()
	_, err := d.DealCards(20)
	require.NoError(t, err)

	d.Reset()
	assert.Equal(t, 52, d.Remaining())
	assert.Equal(t, 0, d.DealtCount())
	require.NoError(t, d.Validate())
}
