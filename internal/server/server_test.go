package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
	"github.com/EL-MTN/PokaiEngine-sub002/sdk"
)

// startTestServer runs a real server on a loopback port with one
// fast-paced table and tears everything down with the test.
func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	seed := int64(11)
	srv, addr, _ := startTestServerWith(t, game.Config{
		SmallBlind:     10,
		BigBlind:       20,
		TurnTimeLimit:  5 * time.Second,
		HandStartDelay: 20 * time.Millisecond,
		Seed:           &seed,
	})
	return srv, addr
}

func startTestServerWith(t *testing.T, cfg game.Config) (*Server, string, *controller.Controller) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

	ctrl := controller.New(controller.Options{Logger: logger})
	require.NoError(t, ctrl.CreateGame("table-1", cfg, ""))

	srv := New(Options{Addr: "127.0.0.1:0", Logger: logger, Controller: ctrl})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv, srv.Addr(), ctrl
}

func dialTestClient(t *testing.T, addr string) *sdk.Client {
	t.Helper()
	client := sdk.New(addr, nil)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// autoplay answers every turn.start by calling when facing a bet and
// checking otherwise.
func autoplay(t *testing.T, client *sdk.Client) {
	t.Helper()
	client.OnTurnStart(func(sdk.TurnStart) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		actions, err := client.Actions(ctx)
		if err != nil || len(actions) == 0 {
			return
		}
		action := sdk.ActionCheck
		for _, a := range actions {
			if a.Type == sdk.ActionCall {
				action = sdk.ActionCall
			}
		}
		_ = client.SubmitAction(ctx, action, 0)
	})
}

func TestLoginJoinAndPlayHand(t *testing.T) {
	_, addr := startTestServer(t)

	alice := sdk.New(addr, nil)
	handDone := make(chan struct{}, 8)
	alice.OnGameEvent(func(ev sdk.GameEvent) {
		var header sdk.EventHeader
		if json.Unmarshal(ev.Event, &header) == nil && header.Type == "hand_complete" {
			select {
			case handDone <- struct{}{}:
			default:
			}
		}
	})
	autoplay(t, alice)
	require.NoError(t, alice.Connect(context.Background()))
	t.Cleanup(func() { _ = alice.Close() })

	bob := dialTestClient(t, addr)
	autoplay(t, bob)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	login, err := alice.Login(ctx, "alice", "", "Alice")
	require.NoError(t, err)
	require.Equal(t, "alice", login.BotID)
	require.Equal(t, "Alice", login.BotName)
	require.NotEmpty(t, login.SessionID)

	_, err = bob.Login(ctx, "bob", "", "")
	require.NoError(t, err)

	games, err := alice.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "table-1", games[0].ID)
	require.True(t, games[0].Joinable)

	joined, err := alice.Join(ctx, "table-1", 1000)
	require.NoError(t, err)
	require.Equal(t, "alice", joined.SeatID)
	require.NotNil(t, joined.State)
	require.Equal(t, "table-1", joined.State.GameID)

	_, err = bob.Join(ctx, "table-1", 1000)
	require.NoError(t, err)

	select {
	case <-handDone:
	case <-ctx.Done():
		t.Fatal("no hand completed")
	}

	state, err := alice.State(ctx)
	require.NoError(t, err)
	seat := state.State.Seat("alice")
	require.NotNil(t, seat)
	require.Positive(t, seat.Chips+seat.TotalBet)

	// Only alice's own hole cards may ever be present.
	for _, s := range state.State.Seats {
		if s.ID != "alice" && !s.Folded && state.State.Phase != "showdown" && state.State.Phase != "hand_complete" {
			require.Empty(t, s.HoleCards)
		}
	}
}

func TestRequestsRequireLogin(t *testing.T) {
	_, addr := startTestServer(t)
	client := dialTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.ListGames(ctx)
	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "AUTH_REQUIRED", apiErr.Code)
}

func TestJoinErrors(t *testing.T) {
	_, addr := startTestServer(t)
	client := dialTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Login(ctx, "carol", "", "")
	require.NoError(t, err)

	var apiErr *sdk.APIError
	_, err = client.Join(ctx, "no-such-table", 1000)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "GAME_NOT_FOUND", apiErr.Code)

	_, err = client.Join(ctx, "table-1", 0)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "MALFORMED_MESSAGE", apiErr.Code)

	_, err = client.Join(ctx, "table-1", 1000)
	require.NoError(t, err)

	_, err = client.Join(ctx, "table-1", 1000)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "ALREADY_IN_GAME", apiErr.Code)
}

func TestActionValidation(t *testing.T) {
	_, addr := startTestServer(t)
	client := dialTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Login(ctx, "dave", "", "")
	require.NoError(t, err)

	// Acting before being seated fails the precondition.
	var apiErr *sdk.APIError
	err = client.SubmitAction(ctx, sdk.ActionCheck, 0)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "PRECONDITION_FAILED", apiErr.Code)

	_, err = client.Join(ctx, "table-1", 1000)
	require.NoError(t, err)

	err = client.SubmitAction(ctx, "jump", 0)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "MALFORMED_MESSAGE", apiErr.Code)

	// Alone at the table no hand runs, so any action is rejected.
	err = client.SubmitAction(ctx, sdk.ActionCheck, 0)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "ACTION_REJECTED", apiErr.Code)
	require.Equal(t, "no_action_pending", apiErr.Reason)
}

func TestLeaveFreesSeat(t *testing.T) {
	_, addr := startTestServer(t)
	client := dialTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Login(ctx, "erin", "", "")
	require.NoError(t, err)
	_, err = client.Join(ctx, "table-1", 1000)
	require.NoError(t, err)

	require.NoError(t, client.Leave(ctx))

	// The seat is free again.
	_, err = client.Join(ctx, "table-1", 1000)
	require.NoError(t, err)
}

func TestDisconnectMidHandKeepsSeatUntilTimeout(t *testing.T) {
	seed := int64(11)
	_, addr, ctrl := startTestServerWith(t, game.Config{
		SmallBlind:     10,
		BigBlind:       20,
		TurnTimeLimit:  300 * time.Millisecond,
		HandStartDelay: 20 * time.Millisecond,
		Seed:           &seed,
	})

	// ghost drops its websocket the moment it is asked to act.
	ghost := sdk.New(addr, nil)
	dropped := make(chan struct{})
	var once sync.Once
	ghost.OnTurnStart(func(sdk.TurnStart) {
		once.Do(func() {
			close(dropped)
			_ = ghost.Close()
		})
	})
	require.NoError(t, ghost.Connect(context.Background()))
	t.Cleanup(func() { _ = ghost.Close() })

	watcher := dialTestClient(t, addr)
	autoplay(t, watcher)
	timeouts := make(chan string, 8)
	watcher.OnGameEvent(func(ev sdk.GameEvent) {
		var header sdk.EventHeader
		if json.Unmarshal(ev.Event, &header) == nil && header.Type == "player_timeout" {
			select {
			case timeouts <- header.SeatID:
			default:
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ghost.Login(ctx, "ghost", "", "")
	require.NoError(t, err)
	_, err = watcher.Login(ctx, "watcher", "", "")
	require.NoError(t, err)
	_, err = ghost.Join(ctx, "table-1", 1000)
	require.NoError(t, err)
	_, err = watcher.Join(ctx, "table-1", 1000)
	require.NoError(t, err)

	select {
	case <-dropped:
	case <-ctx.Done():
		t.Fatal("ghost never got a turn")
	}

	// The dead connection does not free the seat.
	gameID, seated := ctrl.SeatGame("ghost")
	require.True(t, seated)
	require.Equal(t, "table-1", gameID)

	// The turn timer acts for the absent seat.
	select {
	case seatID := <-timeouts:
		require.Equal(t, "ghost", seatID)
	case <-ctx.Done():
		t.Fatal("no forced action for the dropped seat")
	}

	gameID, seated = ctrl.SeatGame("ghost")
	require.True(t, seated)
	require.Equal(t, "table-1", gameID)
}

func TestHealthEndpoint(t *testing.T) {
	_, addr := startTestServer(t)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status   string `json:"status"`
		Tables   int    `json:"tables"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, 1, health.Tables)
}

func TestSessionCountTracksConnections(t *testing.T) {
	srv, addr := startTestServer(t)

	client := dialTestClient(t, addr)
	deadline := time.Now().Add(2 * time.Second)
	for srv.SessionCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, srv.SessionCount())

	require.NoError(t, client.Close())
	deadline = time.Now().Add(2 * time.Second)
	for srv.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 0, srv.SessionCount())
}
