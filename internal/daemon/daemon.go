// Package daemon runs the pipeline continuously: a cron schedule drives
// release builds, a filesystem watcher drives check builds, and manual
// triggers cover both. Each trigger is a one-shot run; the daemon holds no
// cross-run state beyond the run history store.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/logfields"
	"git.home.luguber.info/inful/bookforge/internal/pipeline"
)

// Status represents the daemon lifecycle state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// Daemon coordinates scheduled and watch-triggered pipeline runs.
type Daemon struct {
	cfg       *config.Config
	runner    *pipeline.Runner
	scheduler *Scheduler
	watcher   *ManuscriptWatcher

	mu      sync.Mutex // serializes runs within this process
	statusM sync.RWMutex
	status  Status
}

// NewDaemon creates a daemon around a configured pipeline runner.
func NewDaemon(cfg *config.Config, runner *pipeline.Runner) (*Daemon, error) {
	if cfg.Daemon == nil {
		return nil, fmt.Errorf("daemon configuration missing")
	}

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:       cfg,
		runner:    runner,
		scheduler: scheduler,
		status:    StatusStopped,
	}, nil
}

// Start wires the schedule and the watcher, then returns. Runs happen on
// the scheduler's and watcher's goroutines until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if _, err := d.scheduler.ScheduleRelease(d.cfg.Daemon.Schedule, func() {
		d.runOnce(ctx, build.ModeRelease, "schedule")
	}); err != nil {
		return err
	}

	watcher, err := NewManuscriptWatcher(
		d.cfg.Manuscript.Root,
		d.cfg.Manuscript.WatchPaths,
		d.cfg.Daemon.Debounce,
		func() { d.runOnce(ctx, build.ModeCheck, "watch") },
	)
	if err != nil {
		return err
	}
	d.watcher = watcher

	if err := d.watcher.Start(ctx); err != nil {
		return err
	}
	d.scheduler.Start(ctx)

	d.setStatus(StatusRunning)
	slog.Info("Daemon started", logfields.Schedule(d.cfg.Daemon.Schedule))
	return nil
}

// Stop shuts down the scheduler and watcher.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	err := d.scheduler.Stop(ctx)
	d.setStatus(StatusStopped)
	slog.Info("Daemon stopped")
	return err
}

// GetStatus returns the daemon lifecycle state.
func (d *Daemon) GetStatus() Status {
	d.statusM.RLock()
	defer d.statusM.RUnlock()
	return d.status
}

func (d *Daemon) setStatus(s Status) {
	d.statusM.Lock()
	d.status = s
	d.statusM.Unlock()
}

// TriggerRelease manually triggers a release run.
func (d *Daemon) TriggerRelease(ctx context.Context) {
	d.runOnce(ctx, build.ModeRelease, "manual")
}

// TriggerCheck manually triggers a check run.
func (d *Daemon) TriggerCheck(ctx context.Context) {
	d.runOnce(ctx, build.ModeCheck, "manual")
}

// runOnce executes a single pipeline run. Failures are logged, not fatal:
// the daemon keeps serving later triggers.
func (d *Daemon) runOnce(ctx context.Context, mode build.Mode, trigger string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	slog.Info("Triggered pipeline run",
		logfields.Mode(mode.String()),
		slog.String("trigger", trigger))

	if _, err := d.runner.Run(ctx, mode); err != nil {
		slog.Error("Pipeline run failed",
			logfields.Mode(mode.String()),
			slog.String("trigger", trigger),
			logfields.Error(err))
	}
}
