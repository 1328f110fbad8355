// Package watch rebuilds the bundle when a manifest source file changes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last event before the callback runs
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a set of files for changes
type Watcher struct {
	files    map[string]struct{}
	callback func() error
	debounce time.Duration
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the debounce interval. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for callback and watcher errors
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher for files. The directory of each file is
// watched so that files created after startup are picked up too. Directories
// that do not exist are skipped.
func NewWatcher(files []string, callback func() error, opts ...Option) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		callback: callback,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]struct{})
	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		w.files[absPath] = struct{}{}
		dirs[filepath.Dir(absPath)] = struct{}{}
	}

	for dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug().Str("dir", dir).Msg("Skipping missing directory")
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	return w, nil
}

// Dirs returns the directories being watched
func (w *Watcher) Dirs() []string {
	return w.watcher.WatchList()
}

// Start runs the callback once and then again after each burst of changes
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	w.wg.Add(1)
	go w.loop()

	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			debounceTimer.Reset(w.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(); err != nil {
				w.logger.Error().Err(err).Msg("Rebuild failed")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watch error")

		case <-w.done:
			debounceTimer.Stop()
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[eventPath]
	return ok
}

// Stop stops watching and waits for a running callback to return
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
