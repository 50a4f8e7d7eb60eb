// Package toolchain verifies the external typesetting engine and the
// highlighting renderer are present and invocable before any build step runs.
package toolchain

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/logfields"
)

// Provisioner gates the pipeline on the required external tools.
type Provisioner struct {
	Engine      string // typesetting engine binary, e.g. latexmk
	Highlighter string // listing renderer binary, e.g. pygmentize
}

// NewProvisioner creates a provisioner for the configured tool names.
func NewProvisioner(engine, highlighter string) *Provisioner {
	return &Provisioner{Engine: engine, Highlighter: highlighter}
}

// Ensure verifies each required tool resolves on PATH and answers a version
// probe. The first missing or broken tool aborts the pipeline; nothing is
// built on a partially provisioned host.
func (p *Provisioner) Ensure(ctx context.Context) error {
	for _, tool := range []string{p.Engine, p.Highlighter} {
		if tool == "" {
			continue
		}
		if _, err := exec.LookPath(tool); err != nil {
			return apperrors.ProvisionError(tool, err)
		}
		out, err := exec.CommandContext(ctx, tool, "--version").CombinedOutput()
		if err != nil {
			return apperrors.ProvisionError(tool, err).
				WithContext("output", strings.TrimSpace(string(out)))
		}
		slog.Debug("Tool provisioned",
			logfields.Tool(tool),
			slog.String("version", firstLine(string(out))))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
