// Package watch reruns pipelines when matching files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches Root and calls Run once changes to matching files settle.
// Runs never overlap: the pipeline executes inside the event loop.
type Watcher struct {
	Name string
	Root string
	// Include and Exclude are globs relative to Root.
	Include  []string
	Exclude  []string
	Debounce time.Duration

	Run       func(ctx context.Context, changed []string) error
	OnSuccess func(changed []string)
	OnFailure func(err error)

	Logger *slog.Logger

	// ready is closed once the initial directories are watched.
	ready     chan struct{}
	readyOnce sync.Once
}

func (w *Watcher) readyChan() chan struct{} {
	w.readyOnce.Do(func() { w.ready = make(chan struct{}) })
	return w.ready
}

// Ready is closed once Watch has registered the initial directories.
// It is safe to call from any goroutine.
func (w *Watcher) Ready() <-chan struct{} {
	return w.readyChan()
}

func (w *Watcher) matcher() fsutil.Matcher {
	return fsutil.Matcher{Include: w.Include, Exclude: w.Exclude}
}

// Watch blocks until ctx is cancelled. Pipeline failures go to OnFailure
// and do not stop the watcher.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.Run == nil {
		return fmt.Errorf("watcher %s: no run function", w.Name)
	}
	m := w.matcher()
	if err := m.Validate(); err != nil {
		return fmt.Errorf("watcher %s: %w", w.Name, err)
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("watcher", w.Name)
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ready := w.readyChan()

	root, err := filepath.Abs(w.Root)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRecursive(fsw, root, m); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	close(ready)
	logger.Debug("watching", "root", root, "include", w.Include)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name, m); err != nil {
						logger.Warn("failed to watch new directory", "dir", rel, "error", err)
					}
					continue
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !m.Match(rel) {
				continue
			}

			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := sortedKeys(pending)
			clear(pending)

			logger.Info("change detected", "files", changed)
			if err := w.Run(ctx, changed); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return nil
				}
				logger.Error("pipeline failed", "error", err)
				if w.OnFailure != nil {
					w.OnFailure(err)
				}
				continue
			}
			if w.OnSuccess != nil {
				w.OnSuccess(changed)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// addRecursive watches dir and every directory below it that is not pruned
// by an exclude pattern.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string, m fsutil.Matcher) error {
	root, err := filepath.Abs(w.Root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && m.Prunes(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
