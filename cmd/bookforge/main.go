package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookforge/cmd/bookforge/commands"
	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/version"
)

func main() {
	var cli commands.CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookforge"),
		kong.Description("Build a LaTeX manuscript and publish the PDF to a fixed release tag."),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("bookforge %s (commit %s, built %s)",
				version.Version, version.GitCommit, version.BuildTime),
		},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, &cli); err != nil {
		adapter := apperrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.HandleError(err)
	}
}
