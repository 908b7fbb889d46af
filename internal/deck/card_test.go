package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "royal flush",
			input: "AsKsQsJsTs",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
				{Suit: Spades, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Ten},
			},
		},
		{
			name:  "mixed suits with spaces",
			input: "Ah Kd Qc Js 9s",
			expected: []Card{
				{Suit: Hearts, Rank: Ace},
				{Suit: Diamonds, Rank: King},
				{Suit: Clubs, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Nine},
			},
		},
		{
			name:  "case insensitive",
			input: "asKHqDjc",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Hearts, Rank: King},
				{Suit: Diamonds, Rank: Queen},
				{Suit: Clubs, Rank: Jack},
			},
		},
		{name: "invalid rank", input: "XsKs", wantErr: true},
		{name: "invalid suit", input: "AsKx", wantErr: true},
		{name: "odd length", input: "AsK", wantErr: true},
		{name: "empty string", input: "", expected: []Card{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMustParseCardsPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParseCards("invalid") })
}

func TestCardStringForms(t *testing.T) {
	t.Parallel()

	c := NewCard(Hearts, Queen)
	assert.Equal(t, "Q♥", c.String())
	assert.Equal(t, "Qh", c.Code())
	assert.True(t, c.IsRed())

	s := NewCard(Spades, Ten)
	assert.Equal(t, "T♠", s.String())
	assert.False(t, s.IsRed())
}

func TestCardWireForm(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewCard(Hearts, Ace))
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"H","rank":14}`, string(data))

	var back Card
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, NewCard(Hearts, Ace), back)
}

func TestCardWireFormRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "rank below range", in: `{"suit":"H","rank":1}`},
		{name: "rank above range", in: `{"suit":"H","rank":15}`},
		{name: "unknown suit", in: `{"suit":"X","rank":10}`},
		{name: "missing suit", in: `{"rank":10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Card
			assert.Error(t, json.Unmarshal([]byte(tt.in), &c))
		})
	}
}
