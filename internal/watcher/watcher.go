// Package watcher triggers full site rebuilds when sources or layouts change.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sitegen/internal/site"
)

// DefaultDebounce groups bursts of editor writes into one rebuild.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc runs one full build. reason names the first path that changed.
type RebuildFunc func(ctx context.Context, reason string)

// Config selects what the watcher reacts to.
type Config struct {
	SourceDir string
	LayoutDir string // absolute, or relative to SourceDir
	SourceExt string
	Debounce  time.Duration
}

func (c Config) layoutRoot() string {
	if filepath.IsAbs(c.LayoutDir) {
		return filepath.Clean(c.LayoutDir)
	}
	return filepath.Join(c.SourceDir, c.LayoutDir)
}

// relevant reports whether a change at path can alter the generated site:
// a document directly inside the source directory or anything under the
// layout directory.
func (c Config) relevant(path string) bool {
	if filepath.Dir(path) == filepath.Clean(c.SourceDir) && site.IsDocument(path, c.SourceExt) {
		return true
	}
	root := c.layoutRoot()
	return strings.HasPrefix(path, root+string(os.PathSeparator))
}

// Watch starts an fsnotify watcher on the source tree and calls rebuild
// after changes settle, until ctx is cancelled. Rebuilds run on the
// watcher goroutine, so two never overlap.
//
// New directories created under the layout directory are added to the
// watch list.
func Watch(ctx context.Context, cfg Config, logger *slog.Logger, rebuild RebuildFunc) error {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(cfg.SourceDir)
	if err != nil {
		return err
	}
	cfg.SourceDir = abs

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(cfg.SourceDir); err != nil {
		return err
	}
	if info, statErr := os.Stat(cfg.layoutRoot()); statErr == nil && info.IsDir() {
		if err := addDirsRecursive(w, cfg.layoutRoot()); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", cfg.SourceDir))

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	pending := ""

	schedule := func(path string) {
		if pending == "" {
			pending = path
		}
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(cfg.Debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(cfg.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			reason := pending
			pending = ""
			logger.Debug("watcher: rebuilding", slog.String("changed", reason))
			rebuild(ctx, reason)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					// The layout directory itself may appear after startup.
					if ev.Name == cfg.layoutRoot() || cfg.relevant(ev.Name) {
						if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
							logger.Warn("watcher: add new dir failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						} else {
							logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
						}
						schedule(ev.Name)
					}
					continue
				}
			}

			if ev.Op == fsnotify.Chmod || !cfg.relevant(ev.Name) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
