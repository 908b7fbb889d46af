package replay

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

func newTestRecorder(t *testing.T, opts Options) *Recorder {
	t.Helper()
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	if opts.Clock == nil {
		opts.Clock = quartz.NewMock(t)
	}
	return NewRecorder(opts)
}

// playEngine runs one seeded engine and feeds every event into the
// recorder, the way the controller wires the two together.
func playEngine(t *testing.T, r *Recorder, gameID string, seed int64, script []game.Action) *game.Engine {
	t.Helper()
	cfg := game.Config{SmallBlind: 10, BigBlind: 20, Seed: &seed}.WithDefaults()
	e := game.NewEngine(gameID, cfg, log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}), quartz.NewMock(t))
	last := e.Snapshot()
	e.SetSink(func(ev game.Event) {
		after := e.Snapshot()
		r.RecordEvent(gameID, ev, last, after)
		last = after
	})

	r.StartRecording(gameID, cfg, e.Snapshot(), e.Seed())
	require.NoError(t, e.AddSeat("a", "Alice", 1000))
	require.NoError(t, e.AddSeat("b", "Bob", 1000))
	require.NoError(t, e.StartHand())
	for _, a := range script {
		require.NoError(t, e.ProcessAction(a))
	}
	return e
}

func TestRecordingLifecycle(t *testing.T) {
	r := newTestRecorder(t, Options{})
	e := playEngine(t, r, "g1", 1, []game.Action{
		{SeatID: "a", Type: game.ActionCall},
		{SeatID: "b", Type: game.ActionFold},
	})
	r.EndRecording("g1", e.Snapshot())

	rep, err := r.Get("g1")
	require.NoError(t, err)

	require.NotEmpty(t, rep.Events)
	assert.Equal(t, EventGameStarted, rep.Events[0].Event.Type)
	assert.Equal(t, EventGameEnded, rep.Events[len(rep.Events)-1].Event.Type)

	// Sequences are strictly monotonic from 1.
	for i, ae := range rep.Events {
		assert.Equal(t, uint64(i+1), ae.Sequence)
	}

	// Engine events carry both states, chained: each before matches the
	// previous event's after, and the first picks up from the initial
	// snapshot. The framing pseudo-events carry neither.
	require.Greater(t, len(rep.Events), 3)
	assert.Nil(t, rep.Events[0].Before)
	assert.Nil(t, rep.Events[len(rep.Events)-1].After)
	assert.Equal(t, rep.Initial, rep.Events[1].Before)
	for i := 2; i < len(rep.Events)-1; i++ {
		require.NotNil(t, rep.Events[i].Before, "seq %d", rep.Events[i].Sequence)
		require.NotNil(t, rep.Events[i].After, "seq %d", rep.Events[i].Sequence)
		assert.Equal(t, rep.Events[i-1].After, rep.Events[i].Before, "seq %d", rep.Events[i].Sequence)
	}

	assert.Equal(t, 1, rep.Metadata.HandCount)
	assert.Equal(t, 2, rep.Metadata.TotalActions)
	assert.Equal(t, []string{"a"}, rep.Metadata.Winners)
	assert.Equal(t, map[string]int{"a": 1020, "b": 980}, rep.Metadata.FinalChips)
	assert.Equal(t, map[string]string{"a": "Alice", "b": "Bob"}, rep.PlayerNames)
	assert.Equal(t, int64(1), rep.Seed)
}

func TestRecorderSkipsTurnNotices(t *testing.T) {
	r := newTestRecorder(t, Options{})
	cfg := game.Config{}.WithDefaults()
	r.StartRecording("g1", cfg, &game.Snapshot{GameID: "g1"}, 1)

	r.RecordEvent("g1", game.Event{Type: game.EventTurnStarted}, nil, nil)
	r.RecordEvent("g1", game.Event{Type: game.EventTurnWarning}, nil, nil)
	r.RecordEvent("g1", game.Event{Type: game.EventPlayerJoined, SeatID: "a", SeatName: "Alice"}, nil, nil)

	rep, err := r.Get("g1")
	require.NoError(t, err)
	require.Len(t, rep.Events, 2)
	assert.Equal(t, game.EventPlayerJoined, rep.Events[1].Event.Type)
}

func TestRecordedEventsHideHoleCards(t *testing.T) {
	r := newTestRecorder(t, Options{})
	e := playEngine(t, r, "g1", 1, nil)
	_ = e

	rep, err := r.Get("g1")
	require.NoError(t, err)

	for _, ae := range rep.Events {
		if ae.Event.Type == game.EventHoleCardsDealt {
			assert.Nil(t, ae.Event.HoleCards)
		}
		if ae.Event.Phase >= game.Showdown {
			continue
		}
		for _, snap := range []*game.Snapshot{ae.Before, ae.After} {
			if snap == nil {
				continue
			}
			for _, s := range snap.Seats {
				assert.Empty(t, s.HoleCards, "seat %s at seq %d", s.ID, ae.Sequence)
			}
		}
	}
}

func TestShowdownStaysVisible(t *testing.T) {
	r := newTestRecorder(t, Options{})
	cfg := game.Config{}.WithDefaults()
	r.StartRecording("g1", cfg, &game.Snapshot{GameID: "g1"}, 1)

	r.RecordEvent("g1", game.Event{
		Type:  game.EventShowdownComplete,
		Phase: game.Showdown,
		Showdown: []game.ShowdownHand{
			{SeatID: "a", HoleCards: deck.MustParseCards("AsKs"), Description: "Ace High"},
		},
	}, nil, nil)

	rep, err := r.Get("g1")
	require.NoError(t, err)
	last := rep.Events[len(rep.Events)-1].Event
	require.Len(t, last.Showdown, 1)
	assert.Equal(t, deck.MustParseCards("AsKs"), last.Showdown[0].HoleCards)
}

func TestDecisionContextMovesToAnnotation(t *testing.T) {
	r := newTestRecorder(t, Options{})
	playEngine(t, r, "g1", 1, []game.Action{{SeatID: "a", Type: game.ActionCall}})

	rep, err := r.Get("g1")
	require.NoError(t, err)
	found := false
	for _, ae := range rep.Events {
		if ae.Event.Type != game.EventActionTaken {
			continue
		}
		found = true
		assert.Nil(t, ae.Event.Decision)
		require.NotNil(t, ae.Decision)
		assert.NotEmpty(t, ae.Decision.PossibleActions)
	}
	assert.True(t, found)
}

func TestCheckpointsAtInterval(t *testing.T) {
	r := newTestRecorder(t, Options{CheckpointInterval: 3})
	cfg := game.Config{}.WithDefaults()
	r.StartRecording("g1", cfg, &game.Snapshot{GameID: "g1"}, 1)

	for i := 0; i < 7; i++ {
		r.RecordEvent("g1", game.Event{Type: game.EventActionTaken}, nil, &game.Snapshot{GameID: "g1"})
	}

	rep, err := r.Get("g1")
	require.NoError(t, err)
	require.Len(t, rep.Checkpoints, 2)
	assert.Equal(t, uint64(3), rep.Checkpoints[0].Sequence)
	assert.Equal(t, uint64(6), rep.Checkpoints[1].Sequence)
}

func TestCompletedReplayEviction(t *testing.T) {
	r := newTestRecorder(t, Options{MaxReplaysInMemory: 2})
	cfg := game.Config{}.WithDefaults()

	for _, id := range []string{"g1", "g2", "g3"} {
		r.StartRecording(id, cfg, &game.Snapshot{GameID: id}, 1)
		r.EndRecording(id, nil)
	}

	_, err := r.Get("g1")
	assert.ErrorIs(t, err, ErrNoReplay)
	_, err = r.Get("g2")
	assert.NoError(t, err)
	_, err = r.Get("g3")
	assert.NoError(t, err)
}

func TestExportRoundtrip(t *testing.T) {
	r := newTestRecorder(t, Options{})
	e := playEngine(t, r, "g1", 1, []game.Action{
		{SeatID: "a", Type: game.ActionCall},
		{SeatID: "b", Type: game.ActionCheck},
	})
	r.EndRecording("g1", e.Snapshot())

	data, err := r.ExportJSON("g1")
	require.NoError(t, err)
	plain, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "g1", plain.GameID)
	assert.Equal(t, 1, plain.Metadata.HandCount)

	packed, err := r.ExportCompressed("g1")
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data))
	zipped, err := Parse(packed)
	require.NoError(t, err)
	assert.Equal(t, len(plain.Events), len(zipped.Events))
}

func TestExportUnknownGame(t *testing.T) {
	r := newTestRecorder(t, Options{})
	_, err := r.ExportJSON("nope")
	assert.ErrorIs(t, err, ErrNoReplay)
}

func TestDeterministicRecordings(t *testing.T) {
	script := []game.Action{
		{SeatID: "a", Type: game.ActionCall},
		{SeatID: "b", Type: game.ActionCheck},
		{SeatID: "b", Type: game.ActionCheck},
		{SeatID: "a", Type: game.ActionBet, Amount: 40},
		{SeatID: "b", Type: game.ActionCall},
		{SeatID: "b", Type: game.ActionCheck},
		{SeatID: "a", Type: game.ActionCheck},
		{SeatID: "b", Type: game.ActionCheck},
		{SeatID: "a", Type: game.ActionCheck},
	}

	r1 := newTestRecorder(t, Options{})
	e1 := playEngine(t, r1, "g1", 99, script)
	r1.EndRecording("g1", e1.Snapshot())

	r2 := newTestRecorder(t, Options{})
	e2 := playEngine(t, r2, "g1", 99, script)
	r2.EndRecording("g1", e2.Snapshot())

	// Same seed, same inputs: byte-identical exports.
	first, err := r1.ExportJSON("g1")
	require.NoError(t, err)
	second, err := r2.ExportJSON("g1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFileStoreWritesParseableReplay(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	r := newTestRecorder(t, Options{})
	e := playEngine(t, r, "g1", 1, []game.Action{{SeatID: "a", Type: game.ActionFold}})
	r.EndRecording("g1", e.Snapshot())
	rep, err := r.Get("g1")
	require.NoError(t, err)

	require.NoError(t, store.Save(t.Context(), rep))

	data, err := os.ReadFile(store.Path("g1"))
	require.NoError(t, err)
	loaded, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "g1", loaded.GameID)
	assert.Equal(t, rep.Metadata.HandCount, loaded.Metadata.HandCount)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	rep := &Replay{GameID: "g1", StartedAt: time.Now()}
	require.NoError(t, store.Save(t.Context(), rep))
	data, ok := store.Get("g1")
	require.True(t, ok)
	assert.NotEmpty(t, data)
	assert.Equal(t, 1, store.Len())
}
