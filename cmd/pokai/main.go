package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the poker server"`
	Spawn   SpawnCmd         `cmd:"" help:"Run an in-process server with built-in bots"`
	Replay  ReplayCmd        `cmd:"" help:"Work with exported replays"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokai"),
		kong.Description("Multi-tenant Texas Hold'em server for bots"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
