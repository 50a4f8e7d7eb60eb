package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"git.home.luguber.info/inful/bookforge/internal/logfields"
)

// Engine abstracts how the typesetting step is performed. This allows
// swapping out the external latexmk binary (BinaryEngine) with alternative
// strategies (e.g., a fake for tests) without changing pipeline orchestration.
//
// Contract:
//
//	Run(ctx, workDir, entryName, shellEscape) (log, error)
//
// The engine runs to a fixed point internally (multiple passes for
// cross-references); callers treat it as a single atomic call. The returned
// log is the combined stdout+stderr, preserved even on failure.
type Engine interface {
	Run(ctx context.Context, workDir, entryName string, shellEscape bool) (string, error)
}

// BinaryEngine invokes the configured typesetting binary present on PATH.
type BinaryEngine struct {
	Binary string // defaults to latexmk
}

func (b *BinaryEngine) binary() string {
	if b.Binary == "" {
		return "latexmk"
	}
	return b.Binary
}

func (b *BinaryEngine) Run(ctx context.Context, workDir, entryName string, shellEscape bool) (string, error) {
	args := []string{"-pdf", "-interaction=nonstopmode", "-halt-on-error"}
	if shellEscape {
		// Required so the engine may shell out to the highlighting renderer
		// for embedded code listings.
		args = append(args, "-shell-escape")
	}
	args = append(args, entryName)

	cmd := exec.CommandContext(ctx, b.binary(), args...)
	cmd.Dir = workDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("BinaryEngine invoking typesetter",
		logfields.Tool(b.binary()),
		logfields.Entry(entryName),
		logfields.Path(workDir),
		slog.Bool("shell_escape", shellEscape))

	err := cmd.Run()
	log := output.String()

	if err != nil {
		return log, fmt.Errorf("%s failed: %w", b.binary(), err)
	}
	return log, nil
}
