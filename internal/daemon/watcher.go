package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/bookforge/internal/logfields"
)

// ManuscriptWatcher monitors the manuscript tree and fires a debounced
// check build when a watched path changes. The path globs act as the
// change filter: events outside them are ignored.
type ManuscriptWatcher struct {
	root     string
	globs    []string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
}

// NewManuscriptWatcher creates a watcher over root for the given path globs.
func NewManuscriptWatcher(root string, globs []string, debounce time.Duration, onChange func()) (*ManuscriptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve manuscript root: %w", err)
	}

	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	return &ManuscriptWatcher{
		root:     absRoot,
		globs:    globs,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins monitoring. Directories are watched recursively; fsnotify
// itself is non-recursive, so every subdirectory is added explicitly and
// newly created directories are added as they appear.
func (w *ManuscriptWatcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	slog.Info("Starting manuscript watcher",
		logfields.Path(w.root),
		slog.Int("globs", len(w.globs)))

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *ManuscriptWatcher) Stop() {
	close(w.stopChan)
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}
}

func (w *ManuscriptWatcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *ManuscriptWatcher) watchLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			if !w.matches(event.Name) {
				continue
			}
			slog.Debug("Manuscript change detected", logfields.Path(event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			w.onChange()
		}
	}
}

// matches reports whether the changed path intersects the configured globs.
// A pattern ending in "/**" matches everything under its prefix; a pattern
// without a separator is matched against the file name; anything else is
// matched against the root-relative path.
func (w *ManuscriptWatcher) matches(changed string) bool {
	rel, err := filepath.Rel(w.root, changed)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, glob := range w.globs {
		glob = filepath.ToSlash(glob)
		if prefix, ok := strings.CutSuffix(glob, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if !strings.Contains(glob, "/") {
			if matched, _ := filepath.Match(glob, filepath.Base(rel)); matched {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(glob, rel); matched {
			return true
		}
	}
	return false
}
