package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/oddrun/sidekick/cmd/sidekick/commands"
	"github.com/oddrun/sidekick/internal/errors"
	"github.com/oddrun/sidekick/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sidekick"),
		kong.Description("Personal productivity toolkit: hooks, statusline, sessions, nightshift, skills."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())

	global, closeLog, err := commands.Setup(&cli)
	if err != nil {
		adapter.HandleError(err)
	}

	err = ctx.Run(global)
	closeLog()
	adapter.HandleError(err)
}
