package bot

import (
	"context"
	"errors"
	"io"

	"time"

	"github.com/charmbracelet/log"

	"github.com/EL-MTN/PokaiEngine-sub002/sdk"
)

const (
	callTimeout  = 5 * time.Second
	leaveTimeout = 2 * time.Second
)

// RunnerConfig wires one bot to a server.
type RunnerConfig struct {
	ServerURL string
	BotID     string
	Name      string
	APIKey    string
	GameID    string
	Chips     int
	Strategy  Strategy
	Logger    *log.Logger
}

// Runner drives one strategy over a live connection: on every
// turn.start it fetches state and legal actions, decides, and submits.
type Runner struct {
	cfg    RunnerConfig
	logger *log.Logger
	client *sdk.Client
}

// NewRunner creates a runner. The connection is made in Run.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.WithPrefix("bot").With("bot", cfg.BotID),
	}
}

// Run connects, logs in, joins the configured game and plays until the
// context is cancelled or the connection drops.
func (r *Runner) Run(ctx context.Context) error {
	r.client = sdk.New(r.cfg.ServerURL, r.logger)
	r.client.OnTurnStart(r.onTurn)

	if err := r.client.Connect(ctx); err != nil {
		return err
	}
	defer r.client.Close()

	if _, err := r.client.Login(ctx, r.cfg.BotID, r.cfg.APIKey, r.cfg.Name); err != nil {
		return err
	}
	joined, err := r.client.Join(ctx, r.cfg.GameID, r.cfg.Chips)
	if err != nil {
		return err
	}
	r.logger.Info("seated", "game", joined.GameID, "strategy", r.cfg.Strategy.Name())

	select {
	case <-ctx.Done():
		leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		_ = r.client.Leave(leaveCtx)
		return ctx.Err()
	case <-r.client.Done():
		return sdk.ErrConnectionClosed
	}
}

// onTurn runs on the sdk dispatch goroutine; nested calls are safe
// there because replies arrive on the read loop.
func (r *Runner) onTurn(turn sdk.TurnStart) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	state, err := r.client.State(ctx)
	if err != nil {
		r.logger.Warn("state fetch failed", "error", err)
		return
	}
	if len(state.PossibleActions) == 0 {
		// The turn resolved before we looked, likely a timeout race.
		return
	}

	action, amount := r.cfg.Strategy.Decide(state.State, state.PossibleActions)
	if err := r.client.SubmitAction(ctx, action, amount); err != nil {
		var apiErr *sdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ACTION_REJECTED" {
			r.logger.Warn("action rejected, folding", "action", action, "reason", apiErr.Reason)
			_ = r.client.SubmitAction(ctx, sdk.ActionFold, 0)
			return
		}
		r.logger.Warn("action submit failed", "action", action, "error", err)
		return
	}
	r.logger.Debug("acted", "game", turn.GameID, "hand", state.State.HandNumber,
		"phase", state.State.Phase, "action", action, "amount", amount)
}
