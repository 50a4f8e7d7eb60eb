// Package workspace manages ephemeral working directories for builds. Each
// pipeline run gets a timestamped directory holding a fresh copy of the
// manuscript tree, so no state leaks between invocations and intermediate
// engine files never touch the source checkout.
package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/logfields"
)

// Manager handles the per-run working directory.
type Manager struct {
	baseDir string
	tempDir string
}

// NewManager creates a workspace manager with ephemeral timestamped directories.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create makes the timestamped working directory for this run.
func (m *Manager) Create() error {
	timestamp := time.Now().Format("20060102-150405")
	tempDir, err := os.MkdirTemp(m.baseDir, fmt.Sprintf("bookforge-%s-", timestamp))
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Info("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the workspace directory.
func (m *Manager) GetPath() string {
	return m.tempDir
}

// Cleanup removes the workspace directory.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}

	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Info("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}

// CopyManuscript copies the manuscript tree from root into the workspace,
// skipping VCS metadata and any previous build output directory. Returns the
// destination path the engine should run in.
func (m *Manager) CopyManuscript(root string, skipDirs ...string) (string, error) {
	if m.tempDir == "" {
		return "", fmt.Errorf("workspace not created")
	}

	dst := filepath.Join(m.tempDir, "manuscript")
	if err := copyTree(root, dst, skipDirs); err != nil {
		return "", fmt.Errorf("failed to copy manuscript tree: %w", err)
	}
	return dst, nil
}

func copyTree(src, dst string, skipDirs []string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o750)
		}
		if info.IsDir() {
			if info.Name() == ".git" || skipped(rel, skipDirs) {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o750)
		}
		return copyFile(path, filepath.Join(dst, rel), info.Mode())
	})
}

func skipped(rel string, skipDirs []string) bool {
	for _, d := range skipDirs {
		if d == "" {
			continue
		}
		if rel == filepath.Clean(d) || strings.HasPrefix(rel, filepath.Clean(d)+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
