package preview

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// ErrWatcherClosed is returned by Run when the underlying watcher closes
// before ctx is done.
var ErrWatcherClosed = errors.New("file watcher closed")

// Watcher reports changes below a source root. Events inside the output
// directory and editor scratch files are ignored.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	skip   string
	logger *slog.Logger
}

// NewWatcher watches root and every directory below it except skip.
func NewWatcher(root, skip string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{fsw: fsw, root: filepath.Clean(root), skip: filepath.Clean(skip), logger: logger}
	if err := w.addDirsRecursive(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers relevant events to onChange until ctx is done or the
// watcher is closed, in which case it returns ErrWatcherClosed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addDirsRecursive(ev.Name)
				}
			}
			w.logger.Debug("file change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			onChange(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (w.insideSkip(path) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) insideSkip(path string) bool {
	if w.skip == "" || w.skip == "." {
		return false
	}
	return path == w.skip || strings.HasPrefix(path, w.skip+string(filepath.Separator))
}

func (w *Watcher) ignored(path string) bool {
	return w.insideSkip(filepath.Clean(path)) || isScratchFile(path)
}

// isScratchFile matches hidden files plus editor swap, backup and lock files.
func isScratchFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "4913", base == "Thumbs.db":
		return true
	}
	return false
}
