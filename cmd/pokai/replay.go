package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/replay"
)

// ReplayCmd groups replay subcommands.
type ReplayCmd struct {
	Show ShowCmd `cmd:"" help:"Render an exported replay as a hand history"`
}

// ShowCmd renders a .json or .json.gz replay export to the terminal.
type ShowCmd struct {
	File    string `arg:"" help:"Replay file (.json or .json.gz)"`
	NoColor bool   `help:"Disable colored output"`
}

func (c *ShowCmd) Run() error {
	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	rep, err := replay.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.File, err)
	}
	fmt.Print(replay.RenderText(rep))
	return nil
}
