package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Maximum number of runs to show" default:"20"`
	Mode  string `short:"m" help:"Only show runs of this mode (check|release)"`
}

// filterRunsByMode narrows the listing to one build mode; an empty mode
// keeps everything.
func filterRunsByMode(runs []history.Run, modeStr string) ([]history.Run, error) {
	if modeStr == "" {
		return runs, nil
	}
	mode, err := build.ParseMode(modeStr)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryValidation, apperrors.SeverityFatal,
			"invalid --mode value")
	}
	filtered := runs[:0:0]
	for _, run := range runs {
		if run.Mode == mode.String() {
			filtered = append(filtered, run)
		}
	}
	return filtered, nil
}

func (cmd *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Daemon == nil || cfg.Daemon.HistoryDB == "" {
		return apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"daemon.history_db is not configured")
	}

	store, err := history.NewSQLiteStore(cfg.Daemon.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	runs, err := store.Recent(context.Background(), cmd.Limit)
	if err != nil {
		return err
	}
	runs, err = filterRunsByMode(runs, cmd.Mode)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMODE\tSTATUS\tPUBLISHED\tREVISION\tDURATION\tERROR")
	for _, run := range runs {
		published := ""
		if run.Published {
			published = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Mode,
			run.Status,
			published,
			shortRevision(run.Revision),
			(time.Duration(run.DurationMS) * time.Millisecond).String(),
			run.Error)
	}
	return w.Flush()
}

func shortRevision(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
