package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/gitinfo"
	"git.home.luguber.info/inful/bookforge/internal/history"
	"git.home.luguber.info/inful/bookforge/internal/notify"
	"git.home.luguber.info/inful/bookforge/internal/pipeline"
	"git.home.luguber.info/inful/bookforge/internal/release"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"bookforge.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check   CheckCmd   `cmd:"" help:"Run a check build of the manuscript without publishing"`
	Release ReleaseCmd `cmd:"" help:"Build the full manuscript and publish the PDF to the release tag"`
	Daemon  DaemonCmd  `cmd:"" help:"Run continuously: watch for check builds, release on schedule"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent pipeline runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// assembleRunner wires the optional pipeline collaborators the configuration
// asks for. The returned cleanup closes anything that holds a connection and
// must be called once the run is over.
func assembleRunner(cfg *config.Config, forRelease bool) (*pipeline.Runner, func(), error) {
	runner := pipeline.NewRunner(cfg)
	var closers []func()

	if forRelease {
		if err := cfg.ValidateForRelease(); err != nil {
			return nil, nil, err
		}
		publisher := release.NewForgejoPublisher(cfg.Release).
			WithHeadFunc(func() (string, error) {
				return gitinfo.Head(cfg.Manuscript.Root)
			})
		runner.WithPublisher(publisher)
	}

	if cfg.Daemon != nil && cfg.Daemon.HistoryDB != "" {
		store, err := history.NewSQLiteStore(cfg.Daemon.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		runner.WithStore(store)
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close history store", "error", err)
			}
		})
	}

	if cfg.Notify != nil && cfg.Notify.Enabled {
		notifier, err := notify.NewNATSNotifier(cfg.Notify)
		if err != nil {
			return nil, nil, err
		}
		runner.WithNotifier(notifier)
		closers = append(closers, notifier.Close)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return runner, cleanup, nil
}
