// SPDX-License-Identifier: MPL-2.0

// Package watch re-resolves a pipeline when its document or generator
// sources change.
//
// A Watcher monitors a directory tree and invokes a callback once the
// filesystem has been quiet for a debounce period. Events within the window
// are coalesced so the callback fires once with the full set of changed
// paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period before the callback fires. Editors
// often write and rename in quick succession.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores are never watched: VCS metadata, dependency caches and
// editor swap files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

var (
	// ErrInvalidPattern is returned by New for a malformed glob.
	ErrInvalidPattern = errors.New("invalid watch pattern")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("watcher already running")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar globs relative to BaseDir, such as
		// "phaser-ci-config.yaml" or "ci/**/*.sh". Empty watches everything
		// that is not ignored.
		Patterns []string

		// Ignore adds globs to the built-in ignores.
		Ignore []string

		// Debounce defaults to 300ms when zero or negative.
		Debounce time.Duration

		// BaseDir is the watched root. Empty means the working directory.
		BaseDir string

		// OnChange receives the changed paths, relative to BaseDir and
		// sorted. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger reports callback and watcher errors. Nil means log.Default().
		Logger *log.Logger
	}

	// Watcher monitors BaseDir and fires a debounced callback. Run must be
	// called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every non-ignored directory under
// BaseDir.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		baseDir:  absBase,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
// A callback that is still running when the next one is due delays it
// instead of overlapping.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			// Retry later so the pending set is not lost.
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Debug("change detected", "paths", changed)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close watcher", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.isIgnored(rel) {
				continue
			}

			// New directories extend the watch even when they do not match.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.matchesPatterns(rel) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// addDirectories walks BaseDir and watches every non-ignored directory.
// Patterns are applied when events arrive.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // inaccessible directories are skipped
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("%w %q", ErrInvalidPattern, pat)
		}
	}
	return nil
}
