package game

import (
	"errors"
	"fmt"
	"time"
)

// StartMode selects how a table decides to begin the next hand.
type StartMode string

const (
	// StartMinPlayers starts as soon as the seat count reaches
	// MinPlayers, and again after every hand while it holds.
	StartMinPlayers StartMode = "min_players"
	// StartManual starts only on an explicit request, gated on the
	// creator when one is set.
	StartManual StartMode = "manual"
	// StartScheduled leaves hand starts to an external trigger.
	StartScheduled StartMode = "scheduled"
)

// StartSettings is the auto-start policy of a table.
type StartSettings struct {
	Mode       StartMode `json:"mode"`
	MinPlayers int       `json:"minPlayers,omitempty"`
}

// BlindLevel is one step of a tournament blind schedule. The engine
// only captures the data; it never advances levels.
type BlindLevel struct {
	SmallBlind int           `json:"smallBlind"`
	BigBlind   int           `json:"bigBlind"`
	Duration   time.Duration `json:"duration"`
}

// TournamentSettings is recorded with replays for tournament games.
type TournamentSettings struct {
	Levels []BlindLevel `json:"levels,omitempty"`
}

// Config is the per-table game configuration.
type Config struct {
	MaxPlayers     int           `json:"maxPlayers"`
	SmallBlind     int           `json:"smallBlind"`
	BigBlind       int           `json:"bigBlind"`
	TurnTimeLimit  time.Duration `json:"turnTimeLimit"`
	HandStartDelay time.Duration `json:"handStartDelay"`
	IsTournament   bool          `json:"isTournament,omitempty"`
	Start          StartSettings `json:"start"`

	Tournament *TournamentSettings `json:"tournament,omitempty"`

	// Seed fixes the shuffle PRNG for deterministic play. Nil draws a
	// seed from OS entropy; the drawn value still lands in the replay
	// so hands stay reproducible.
	Seed *int64 `json:"seed,omitempty"`
}

// WithDefaults fills unset fields with the standard values.
func (c Config) WithDefaults() Config {
	if c.MaxPlayers == 0 {
		c.MaxPlayers = 6
	}
	if c.SmallBlind == 0 {
		c.SmallBlind = 10
	}
	if c.BigBlind == 0 {
		c.BigBlind = c.SmallBlind * 2
	}
	if c.TurnTimeLimit == 0 {
		c.TurnTimeLimit = 30 * time.Second
	}
	if c.HandStartDelay == 0 {
		c.HandStartDelay = 2 * time.Second
	}
	if c.Start.Mode == "" {
		c.Start.Mode = StartMinPlayers
	}
	if c.Start.Mode == StartMinPlayers && c.Start.MinPlayers == 0 {
		c.Start.MinPlayers = 2
	}
	return c
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.MaxPlayers < 2 {
		return errors.New("max players must be at least 2")
	}
	if c.SmallBlind <= 0 || c.BigBlind <= 0 {
		return errors.New("blinds must be positive")
	}
	if c.BigBlind < c.SmallBlind {
		return fmt.Errorf("big blind %d below small blind %d", c.BigBlind, c.SmallBlind)
	}
	if c.TurnTimeLimit <= 0 {
		return errors.New("turn time limit must be positive")
	}
	switch c.Start.Mode {
	case StartMinPlayers:
		if c.Start.MinPlayers < 2 {
			return errors.New("min players must be at least 2")
		}
	case StartManual, StartScheduled:
	default:
		return fmt.Errorf("unknown start mode %q", c.Start.Mode)
	}
	return nil
}
