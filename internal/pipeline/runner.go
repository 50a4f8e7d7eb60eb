// Package pipeline orchestrates one run: provision the toolchain, select the
// entry document for the requested mode, invoke the engine, and (in release
// mode) publish the artifact. Each run is a single linear sequence of
// blocking steps; concurrency between runs is the hosting collaborator's
// problem, guarded only by the publisher's stale-revision check.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/gitinfo"
	"git.home.luguber.info/inful/bookforge/internal/history"
	"git.home.luguber.info/inful/bookforge/internal/logfields"
	"git.home.luguber.info/inful/bookforge/internal/manuscript"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
	"git.home.luguber.info/inful/bookforge/internal/notify"
	"git.home.luguber.info/inful/bookforge/internal/release"
	"git.home.luguber.info/inful/bookforge/internal/toolchain"
	"git.home.luguber.info/inful/bookforge/internal/workspace"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

// Provisioner gates a run on the external toolchain.
type Provisioner interface {
	Ensure(ctx context.Context) error
}

// Invoker runs the typesetting engine.
type Invoker interface {
	Build(ctx context.Context, req build.Request) (*build.Result, error)
}

// Runner executes pipeline runs against a fixed configuration.
type Runner struct {
	cfg         *config.Config
	provisioner Provisioner
	invoker     Invoker
	publisher   release.Publisher
	store       history.Store
	recorder    metrics.Recorder
	notifier    notify.Notifier
	headFunc    func(string) (string, error)
}

// NewRunner creates a runner with default production wiring. The publisher
// stays nil until release mode is actually requested; check-only deployments
// never need forge credentials.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:         cfg,
		provisioner: toolchain.NewProvisioner(cfg.Build.Engine, cfg.Build.Highlighter),
		invoker:     build.NewInvoker(&build.BinaryEngine{Binary: cfg.Build.Engine}),
		recorder:    metrics.NoopRecorder{},
		notifier:    notify.NoopNotifier{},
		headFunc:    gitinfo.Head,
	}
}

// Fluent setters for optional collaborators.

func (r *Runner) WithProvisioner(p Provisioner) *Runner {
	if p != nil {
		r.provisioner = p
	}
	return r
}

func (r *Runner) WithInvoker(i Invoker) *Runner {
	if i != nil {
		r.invoker = i
	}
	return r
}

func (r *Runner) WithPublisher(p release.Publisher) *Runner {
	r.publisher = p
	return r
}

func (r *Runner) WithStore(s history.Store) *Runner {
	r.store = s
	return r
}

func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

func (r *Runner) WithNotifier(n notify.Notifier) *Runner {
	if n != nil {
		r.notifier = n
	}
	return r
}

func (r *Runner) WithHeadFunc(f func(string) (string, error)) *Runner {
	if f != nil {
		r.headFunc = f
	}
	return r
}

// Run executes one pipeline invocation in the given mode. The returned
// Result is non-nil whenever the engine actually ran, even on failure, so
// callers can surface the engine log.
func (r *Runner) Run(ctx context.Context, mode build.Mode) (*build.Result, error) {
	runID := uuid.NewString()
	start := time.Now()

	slog.Info("Pipeline run starting",
		logfields.RunID(runID),
		logfields.Mode(mode.String()),
		logfields.Entry(r.cfg.Manuscript.Entry))

	result, err := r.run(ctx, mode)

	r.finish(ctx, runID, mode, start, result, err)
	return result, err
}

func (r *Runner) run(ctx context.Context, mode build.Mode) (*build.Result, error) {
	if err := r.provisioner.Ensure(ctx); err != nil {
		return nil, err
	}

	raw, err := manuscript.LoadEntry(r.cfg.Manuscript.Root, r.cfg.Manuscript.Entry)
	if err != nil {
		return nil, err
	}
	selected := manuscript.SelectEntry(mode, raw)

	revision, err := r.headFunc(r.cfg.Manuscript.Root)
	if err != nil {
		return nil, err
	}

	ws := workspace.NewManager("")
	if err := ws.Create(); err != nil {
		return nil, apperrors.WorkspaceError("create", err)
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			slog.Warn("Failed to cleanup workspace", logfields.Error(cleanupErr))
		}
	}()

	// Skip the output directory when it lives inside the manuscript root so
	// stale artifacts never leak into a fresh run.
	skipDir := ""
	if rel, relErr := filepath.Rel(r.cfg.Manuscript.Root, r.cfg.Build.OutputDir); relErr == nil && !strings.HasPrefix(rel, "..") {
		skipDir = rel
	}

	workDir, err := ws.CopyManuscript(r.cfg.Manuscript.Root, skipDir)
	if err != nil {
		return nil, apperrors.WorkspaceError("copy manuscript", err)
	}

	result, err := r.invoker.Build(ctx, build.Request{
		WorkDir:     workDir,
		EntryName:   selected.Name,
		Content:     selected.Content,
		Mode:        mode,
		Revision:    revision,
		ShellEscape: r.cfg.Build.ShellEscape,
		Timeout:     r.cfg.Build.Timeout,
	})
	if err != nil {
		return result, err
	}

	// Preserve the artifact outside the ephemeral workspace before any
	// publish attempt, so a failed upload still leaves it recoverable.
	finalPath, err := r.exportArtifact(result.ArtifactPath)
	if err != nil {
		return result, err
	}
	exported := *result
	exported.ArtifactPath = finalPath
	result = &exported

	if mode == build.ModeRelease {
		if err := r.publish(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (r *Runner) publish(ctx context.Context, result *build.Result) error {
	if r.publisher == nil {
		return apperrors.New(apperrors.CategoryRelease, apperrors.SeverityFatal,
			"no publisher configured for release run")
	}

	assetName := r.cfg.Release.AssetName
	if assetName == "" {
		assetName = build.ArtifactName(r.cfg.Manuscript.Entry)
	}

	notes := ""
	if r.cfg.Release.NotesFile != "" {
		notes = release.LoadNotes(filepath.Join(r.cfg.Manuscript.Root, r.cfg.Release.NotesFile))
	}

	err := r.publisher.Publish(ctx, release.Artifact{
		Path:     result.ArtifactPath,
		Name:     assetName,
		Revision: result.Revision,
		Notes:    notes,
	})
	if err != nil {
		r.recorder.IncPublishOutcome(outcomeForPublishError(err))
		return err
	}

	r.recorder.IncPublishOutcome("success")
	r.recorder.SetLastPublishedTimestamp(time.Now())
	slog.Info("Release tag updated",
		logfields.Tag(r.cfg.Release.Tag),
		logfields.Artifact(assetName))
	return nil
}

func (r *Runner) exportArtifact(artifactPath string) (string, error) {
	outDir := r.cfg.Build.OutputDir
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", apperrors.WorkspaceError("create output dir", err)
	}

	finalPath := filepath.Join(outDir, filepath.Base(artifactPath))
	if err := copyFile(artifactPath, finalPath); err != nil {
		return "", apperrors.WorkspaceError("export artifact", err)
	}
	return finalPath, nil
}

// finish records the run outcome in history, metrics, and notifications.
// Recording never alters the run's result.
func (r *Runner) finish(ctx context.Context, runID string, mode build.Mode, start time.Time, result *build.Result, runErr error) {
	duration := time.Since(start)
	status := string(build.StatusFailure)
	revision, artifact := "", ""
	published := false
	if result != nil {
		revision = result.Revision
		artifact = result.ArtifactPath
	}
	if runErr == nil && result.Succeeded() {
		status = string(build.StatusSuccess)
		published = mode == build.ModeRelease
	}
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	r.recorder.ObserveRunDuration(mode.String(), duration)
	r.recorder.IncRunOutcome(mode.String(), status)

	if r.store != nil {
		record := history.Run{
			ID:         runID,
			Mode:       mode.String(),
			Status:     status,
			Revision:   revision,
			Artifact:   artifact,
			Published:  published,
			Error:      errText,
			StartedAt:  start,
			DurationMS: duration.Milliseconds(),
		}
		if err := r.store.Record(ctx, record); err != nil {
			slog.Warn("Failed to record run history", logfields.RunID(runID), logfields.Error(err))
		}
	}

	r.notifier.RunCompleted(ctx, notify.RunEvent{
		RunID:     runID,
		Mode:      mode.String(),
		Status:    status,
		Revision:  revision,
		Artifact:  artifact,
		Published: published,
		Error:     errText,
		Timestamp: time.Now(),
	})

	slog.Info("Pipeline run finished",
		logfields.RunID(runID),
		logfields.Mode(mode.String()),
		slog.String("status", status),
		logfields.DurationMS(float64(duration.Milliseconds())))
}

func outcomeForPublishError(err error) string {
	if apperrors.IsCategory(err, apperrors.CategoryRelease) {
		if pe, ok := err.(*apperrors.PipelineError); ok {
			if _, stale := pe.Context["built_revision"]; stale {
				return "stale"
			}
		}
	}
	return "failure"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
