package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/logfields"
)

// Request describes one engine invocation against a prepared working directory.
type Request struct {
	WorkDir     string // fresh working copy of the manuscript tree
	EntryName   string // entry document file name, e.g. main.tex
	Content     string // selected entry document content, written before the engine runs
	Mode        Mode
	Revision    string
	ShellEscape bool // explicit capability flag; not inherited from the environment
	Timeout     time.Duration
}

// ArtifactName derives the engine's output file name from an entry document name.
func ArtifactName(entryName string) string {
	return strings.TrimSuffix(entryName, filepath.Ext(entryName)) + ".pdf"
}

// Invoker runs the typesetting engine and reports an immutable Result.
type Invoker struct {
	engine Engine
}

// NewInvoker creates an invoker backed by the given engine. A nil engine
// falls back to the latexmk binary.
func NewInvoker(engine Engine) *Invoker {
	if engine == nil {
		engine = &BinaryEngine{}
	}
	return &Invoker{engine: engine}
}

// Build writes the selected entry document into the working directory and
// runs the engine against it. A non-zero engine exit or a missing output
// artifact yields a Failure result; the engine log is preserved either way.
// The returned error carries the failure for pipeline propagation, alongside
// the Result for diagnosis and history.
func (i *Invoker) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	entryPath := filepath.Join(req.WorkDir, req.EntryName)
	if err := os.WriteFile(entryPath, []byte(req.Content), 0o644); err != nil {
		return nil, apperrors.WorkspaceError("write entry document", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	slog.Info("Starting typesetting run",
		logfields.Mode(req.Mode.String()),
		logfields.Entry(req.EntryName),
		logfields.Revision(req.Revision))

	engineLog, runErr := i.engine.Run(ctx, req.WorkDir, req.EntryName, req.ShellEscape)

	result := &Result{
		Log:      engineLog,
		Mode:     req.Mode,
		Revision: req.Revision,
		Duration: time.Since(start),
	}

	if runErr != nil {
		// A host-imposed timeout surfaces here as context cancellation and
		// is treated identically to an engine failure.
		result.Status = StatusFailure
		slog.Error("Typesetting run failed",
			logfields.Entry(req.EntryName),
			logfields.DurationMS(float64(result.Duration.Milliseconds())),
			logfields.Error(runErr))
		return result, apperrors.BuildFailed(req.EntryName, runErr)
	}

	artifactPath := filepath.Join(req.WorkDir, ArtifactName(req.EntryName))
	if _, err := os.Stat(artifactPath); err != nil {
		result.Status = StatusFailure
		return result, apperrors.ArtifactMissing(artifactPath)
	}

	result.Status = StatusSuccess
	result.ArtifactPath = artifactPath
	slog.Info("Typesetting run completed",
		logfields.Entry(req.EntryName),
		logfields.Artifact(artifactPath),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}
