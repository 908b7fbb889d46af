package server

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/auth"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// Config is the full server configuration, read from an HCL file.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Auth   *AuthSettings  `hcl:"auth,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings is the server block.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// AuthSettings is the auth block.
type AuthSettings struct {
	Mode      string   `hcl:"mode,optional"`
	URL       string   `hcl:"url,optional"`
	TimeoutMs int      `hcl:"timeout_ms,optional"`
	Bots      []BotKey `hcl:"bot,block"`
}

// BotKey is one static credential in the auth block.
type BotKey struct {
	ID   string `hcl:"id,label"`
	Key  string `hcl:"key"`
	Name string `hcl:"name,optional"`
}

// TableConfig is one table block, created at startup.
type TableConfig struct {
	Name                 string `hcl:"name,label"`
	MaxPlayers           int    `hcl:"max_players,optional"`
	SmallBlind           int    `hcl:"small_blind,optional"`
	BigBlind             int    `hcl:"big_blind,optional"`
	TurnTimeLimitSeconds int    `hcl:"turn_time_limit_seconds,optional"`
	HandStartDelayMs     int    `hcl:"hand_start_delay_ms,optional"`
	StartMode            string `hcl:"start_mode,optional"`
	MinPlayers           int    `hcl:"min_players,optional"`
	Seed                 *int64 `hcl:"seed,optional"`
}

// DefaultConfig is what a missing config file means: one open table,
// no authentication.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{Address: "localhost:8080", LogLevel: "info"},
		Tables: []TableConfig{{Name: "main"}},
	}
}

// LoadConfig parses an HCL configuration file and applies defaults.
func LoadConfig(filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Auth != nil && c.Auth.Mode == "" {
		c.Auth.Mode = "none"
	}
	if len(c.Tables) == 0 {
		c.Tables = []TableConfig{{Name: "main"}}
	}
}

// Validate rejects configurations the server cannot run.
func (c *Config) Validate() error {
	if c.Auth != nil {
		switch c.Auth.Mode {
		case "", "none":
		case "static":
			if len(c.Auth.Bots) == 0 {
				return fmt.Errorf("auth mode static requires at least one bot block")
			}
			for _, b := range c.Auth.Bots {
				if b.Key == "" {
					return fmt.Errorf("bot %s: key required", b.ID)
				}
			}
		case "http":
			if c.Auth.URL == "" {
				return fmt.Errorf("auth mode http requires url")
			}
		default:
			return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
		}
	}
	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("table name required")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate table %q", t.Name)
		}
		seen[t.Name] = true
		if err := t.GameConfig().Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Validator builds the credential validator the auth block asks for.
func (c *Config) Validator() auth.Validator {
	if c.Auth == nil {
		return auth.NewNoopValidator()
	}
	switch c.Auth.Mode {
	case "static":
		keys := make(map[string]auth.StaticKey, len(c.Auth.Bots))
		for _, b := range c.Auth.Bots {
			keys[b.ID] = auth.StaticKey{Key: b.Key, Name: b.Name}
		}
		return auth.NewStaticValidator(keys)
	case "http":
		return auth.NewHTTPValidator(c.Auth.URL, time.Duration(c.Auth.TimeoutMs)*time.Millisecond)
	default:
		return auth.NewNoopValidator()
	}
}

// GameConfig converts a table block into an engine configuration with
// defaults applied.
func (t TableConfig) GameConfig() game.Config {
	cfg := game.Config{
		MaxPlayers:     t.MaxPlayers,
		SmallBlind:     t.SmallBlind,
		BigBlind:       t.BigBlind,
		TurnTimeLimit:  time.Duration(t.TurnTimeLimitSeconds) * time.Second,
		HandStartDelay: time.Duration(t.HandStartDelayMs) * time.Millisecond,
		Seed:           t.Seed,
	}
	if t.StartMode != "" {
		cfg.Start.Mode = game.StartMode(t.StartMode)
	}
	cfg.Start.MinPlayers = t.MinPlayers
	return cfg.WithDefaults()
}
