package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/bot"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/gameid"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/replay"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/server"
)

// SpawnCmd runs a server and a fleet of built-in bots in one process,
// for demos and smoke testing.
type SpawnCmd struct {
	Addr       string `kong:"default='localhost:0',help='Listen address, defaults to a random port'"`
	Spec       string `kong:"default='caller:2',help='Bot fleet, e.g. caller:2,random:3,folder:1'"`
	Chips      int    `kong:"default='1000',help='Starting chip stack per bot'"`
	SmallBlind int    `kong:"default='5',help='Small blind'"`
	BigBlind   int    `kong:"default='10',help='Big blind'"`
	TimeoutMs  int    `kong:"default='1000',help='Turn time limit in milliseconds'"`
	HandLimit  int    `kong:"help='Stop after N hands (0 for unlimited)'"`
	Seed       *int64 `kong:"help='Deterministic shuffle seed'"`
	LogLevel   string `kong:"default='info',help='Log level: debug|info|warn|error'"`
	ReplayOut  string `kong:"help='Write the final replay JSON to this file on exit'"`
}

type botSpec struct {
	strategy string
	count    int
}

func (c *SpawnCmd) Run() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	specs, total, err := parseSpec(c.Spec)
	if err != nil {
		return err
	}
	if total < 2 {
		return fmt.Errorf("need at least 2 bots, spec %q has %d", c.Spec, total)
	}

	recorder := replay.NewRecorder(replay.Options{Logger: logger})
	ctrl := controller.New(controller.Options{Logger: logger, Recorder: recorder})

	gameID := gameid.Generate()
	cfg := game.Config{
		MaxPlayers:     total,
		SmallBlind:     c.SmallBlind,
		BigBlind:       c.BigBlind,
		TurnTimeLimit:  time.Duration(c.TimeoutMs) * time.Millisecond,
		HandStartDelay: 100 * time.Millisecond,
		Seed:           c.Seed,
		Start:          game.StartSettings{Mode: game.StartMinPlayers, MinPlayers: total},
	}
	if err := ctrl.CreateGame(gameID, cfg, ""); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The hand limit counts completions on the controller's own event
	// stream and cancels the whole fleet.
	if c.HandLimit > 0 {
		hands := 0
		if _, err := ctrl.Subscribe(gameID, func(ev game.Event) {
			if ev.Type != game.EventHandComplete {
				return
			}
			hands++
			if hands >= c.HandLimit {
				logger.Info("hand limit reached", "hands", hands)
				cancel()
			}
		}); err != nil {
			return err
		}
	}

	srv := server.New(server.Options{
		Addr:       c.Addr,
		Logger:     logger,
		Controller: ctrl,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	// Wait for the listener so the bots have an address to dial.
	addr, err := waitForAddr(ctx, srv)
	if err != nil {
		return err
	}
	logger.Info("spawn server up", "addr", addr, "game", gameID, "bots", total)

	seat := 0
	for _, spec := range specs {
		for i := 0; i < spec.count; i++ {
			seat++
			botID := fmt.Sprintf("%s-%d", spec.strategy, seat)
			strategy, err := newSpawnStrategy(spec.strategy, c.Seed, seat)
			if err != nil {
				return err
			}
			runner := bot.NewRunner(bot.RunnerConfig{
				ServerURL: addr,
				BotID:     botID,
				Name:      botID,
				GameID:    gameID,
				Chips:     c.Chips,
				Strategy:  strategy,
				Logger:    logger,
			})
			g.Go(func() error {
				err := runner.Run(ctx)
				if ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
	}

	runErr := g.Wait()
	if c.ReplayOut != "" {
		if err := writeReplay(recorder, gameID, c.ReplayOut); err != nil {
			logger.Error("replay export failed", "error", err)
		}
	}
	return runErr
}

func parseSpec(raw string) ([]botSpec, int, error) {
	var specs []botSpec
	total := 0
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, countStr, found := strings.Cut(part, ":")
		count := 1
		if found {
			n, err := strconv.Atoi(countStr)
			if err != nil || n < 1 {
				return nil, 0, fmt.Errorf("bad bot count in %q", part)
			}
			count = n
		}
		specs = append(specs, botSpec{strategy: name, count: count})
		total += count
	}
	if len(specs) == 0 {
		return nil, 0, fmt.Errorf("empty bot spec")
	}
	return specs, total, nil
}

// newSpawnStrategy seeds random bots deterministically per seat when a
// seed is given.
func newSpawnStrategy(name string, seed *int64, seat int) (bot.Strategy, error) {
	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewPCG(uint64(*seed), uint64(seat)))
	}
	return bot.New(name, rng)
}

func waitForAddr(ctx context.Context, srv *server.Server) (string, error) {
	for {
		if addr := srv.Addr(); addr != "" {
			return addr, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func writeReplay(recorder *replay.Recorder, gameID, path string) error {
	data, err := recorder.ExportJSON(gameID)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
