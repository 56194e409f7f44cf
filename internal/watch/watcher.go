package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// ignoreDirNames are directory names never worth watching.
var ignoreDirNames = map[string]bool{
	".git":        true,
	".tox":        true,
	".venv":       true,
	".mypy_cache": true,
	"__pycache__": true,
	".charmsmith": true,
}

// Config configures the watcher.
type Config struct {
	// Root is the charm project directory.
	Root string

	// Charm names the charm for the ready message.
	Charm string

	// Sources are the files whose changes trigger a rebuild, absolute
	// or relative to Root.
	Sources []string

	// IgnorePaths are directory trees to leave unwatched, such as the
	// build output directory. Without this the manifest written by a
	// rebuild would itself trigger the next rebuild.
	IgnorePaths []string

	// Debounce is the coalescing window in milliseconds.
	Debounce int

	Verbose bool
	NoColor bool
	JSON    bool

	// Build runs one rebuild covering the changed paths.
	Build func(ctx context.Context, changed []string) error

	// Output names what Build produces, for logging.
	Output string

	// Resolve re-resolves the source set after a successful build so
	// files created during the session are picked up. Optional.
	Resolve func() ([]string, error)
}

// Watcher watches charm sources and rebuilds on changes.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger

	sourcesMu sync.RWMutex
	sources   map[string]bool // absolute paths

	ignore []string // absolute path prefixes

	// buildMu prevents concurrent rebuilds
	buildMu sync.Mutex
}

// New creates a new watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Build == nil {
		return nil, fmt.Errorf("watch: no build function configured")
	}
	if cfg.Output == "" {
		cfg.Output = cfg.Charm
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	logger := NewLogger(LoggerConfig{
		Verbose: cfg.Verbose,
		NoColor: cfg.NoColor,
		JSON:    cfg.JSON,
	})

	w := &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger:    logger,
	}
	w.setSources(cfg.Sources)
	for _, p := range cfg.IgnorePaths {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}

	return w, nil
}

// Run starts the watch loop. It blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	debounceWindow := time.Duration(w.config.Debounce) * time.Millisecond
	if debounceWindow <= 0 {
		debounceWindow = 500 * time.Millisecond
	}
	w.debouncer = NewDebouncer(debounceWindow, func(paths []string) {
		w.handleChanged(ctx, paths)
	})
	defer w.debouncer.Stop()

	if err := w.addRecursive(w.config.Root); err != nil {
		return fmt.Errorf("failed to watch project: %w", err)
	}

	w.sourcesMu.RLock()
	sourceCount := len(w.sources)
	w.sourcesMu.RUnlock()
	w.logger.Ready(sourceCount, w.config.Charm, w.config.Root)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// setSources replaces the source set, normalizing paths to absolute.
func (w *Watcher) setSources(sources []string) {
	set := make(map[string]bool, len(sources))
	for _, src := range sources {
		path := src
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.config.Root, path)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		set[path] = true
	}
	w.sourcesMu.Lock()
	w.sources = set
	w.sourcesMu.Unlock()
}

func (w *Watcher) isSource(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.sourcesMu.RLock()
	defer w.sourcesMu.RUnlock()
	return w.sources[abs]
}

// ignored reports whether a path lies inside one of the ignored trees.
func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, prefix := range w.ignore {
		if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addRecursive adds a directory and all subdirectories to the watcher.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Log permission errors in verbose mode, skip silently otherwise
			if os.IsPermission(err) {
				if w.config.Verbose {
					w.logger.Error(fmt.Errorf("permission denied: %s", path))
				}
				return nil
			}
			w.logger.Error(fmt.Errorf("walk error at %s: %w", path, err))
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && (ignoreDirNames[d.Name()] || w.ignored(path)) {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w at %s: %w\n"+
					"increase the limit with: sudo sysctl fs.inotify.max_user_watches=524288",
					ErrWatchLimitReached, path, err)
			}
			if w.config.Verbose {
				w.logger.Error(fmt.Errorf("failed to watch %s: %w", path, err))
			}
			return nil
		}

		return nil
	})
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories need their own watches.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if ignoreDirNames[filepath.Base(path)] || w.ignored(path) {
				return
			}
			if err := w.addRecursive(path); err != nil {
				w.logger.Error(fmt.Errorf("failed to watch new directory %s: %w", path, err))
			}
			return
		}
	}

	if w.ignored(path) || !w.isSource(path) {
		return
	}

	var changeType ChangeType
	switch {
	case event.Has(fsnotify.Create):
		changeType = ChangeAdded
	case event.Has(fsnotify.Write):
		changeType = ChangeModified
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		changeType = ChangeDeleted
	default:
		return // Ignore chmod events
	}

	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		rel = path
	}
	w.logger.FileChanged(rel, changeType)
	w.debouncer.Add(rel)
}

// handleChanged is called when the debouncer flushes. One rebuild runs
// regardless of how many paths changed.
func (w *Watcher) handleChanged(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}

	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	slices.Sort(paths)
	w.logger.Building(paths)

	if err := w.config.Build(ctx, paths); err != nil {
		w.logger.Error(fmt.Errorf("build failed: %w", err))
		return
	}
	w.logger.Built(w.config.Output)

	if w.config.Resolve != nil {
		sources, err := w.config.Resolve()
		if err != nil {
			w.logger.Error(fmt.Errorf("failed to refresh source list: %w", err))
			return
		}
		w.setSources(sources)
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
