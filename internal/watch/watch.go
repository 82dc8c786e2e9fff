// Package watch imports documents dropped into an inbox directory. Files
// whose base name matches one of the configured globs are handed to a
// handler once writes to them have settled for the debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/FocuswithJustin/Linegra/internal/config"
	"github.com/FocuswithJustin/Linegra/internal/logging"
)

// DefaultDebounce is used when the configuration leaves it unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrNotDirectory indicates the inbox path is not a directory.
	ErrNotDirectory = errors.New("watch path is not a directory")

	// ErrInvalidPattern indicates a pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid watch pattern")
)

// Handler processes one settled file. Errors are logged and do not stop
// the watcher.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Patterns []string
	Debounce time.Duration
	// Existing hands already present matching files to the handler on start.
	Existing bool
}

// FromConfig converts the watch configuration section.
func FromConfig(cfg config.WatchConfig) Options {
	return Options{Patterns: cfg.Patterns, Debounce: cfg.Debounce}
}

// Watcher watches one directory.
type Watcher struct {
	dir      string
	patterns []glob.Glob
	debounce time.Duration
	existing bool
	handler  Handler

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// New validates dir and compiles the patterns. No pattern matches every
// file.
func New(dir string, opts Options, handler Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	if handler == nil {
		return nil, errors.New("watch handler is required")
	}

	patterns := make([]glob.Glob, 0, len(opts.Patterns))
	for _, p := range opts.Patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		patterns = append(patterns, g)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:      dir,
		patterns: patterns,
		debounce: debounce,
		existing: opts.Existing,
		handler:  handler,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}, nil
}

// Matches reports whether the base name of path passes the patterns.
func (w *Watcher) Matches(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	name := filepath.Base(path)
	for _, g := range w.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Run watches until ctx is done. Files are handled one at a time in the
// order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.WatchEvent("started", w.dir, "debounce_ms", w.debounce.Milliseconds())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatch(ctx)
	}()
	defer func() {
		w.stopTimers()
		wg.Wait()
		logging.WatchEvent("stopped", w.dir)
	}()

	if w.existing {
		w.scanExisting()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WatchEvent("error", w.dir, "error", err.Error())
		}
	}
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.WatchEvent("error", w.dir, "error", err.Error())
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && w.Matches(e.Name()) {
			w.schedule(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.Matches(ev.Name) {
		return
	}
	w.schedule(ev.Name)
}

// schedule restarts the settle timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if _, ok := w.pending[path]; !ok {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		default:
			logging.WatchEvent("dropped", path, "reason", "queue full")
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.ready:
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			logging.WatchEvent("settled", path, "size_bytes", info.Size())
			if err := w.handler(ctx, path); err != nil {
				logging.WatchEvent("failed", path, "error", err.Error())
				continue
			}
			logging.WatchEvent("handled", path)
		}
	}
}
