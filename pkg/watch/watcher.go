// Package watch re-runs an analysis whenever its input file changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before a change
// is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files and reports settled changes one at a time.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]*fileState
	mu       sync.Mutex
	debounce time.Duration
	changes  chan string

	// OnChange runs for each settled change. Calls never overlap.
	OnChange func(ctx context.Context, path string) error
	OnError  func(path string, err error)
}

type fileState struct {
	lastModified time.Time
	size         int64
}

// NewWatcher creates a file watcher. A non-positive debounce selects
// DefaultDebounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]*fileState),
		debounce: debounce,
		changes:  make(chan string, 16),
	}, nil
}

// Watch starts watching a file for changes.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	// Watch the directory so editors that save by rename are still seen.
	if err := w.watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	return nil
}

// Run starts the watch loop. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case path := <-w.changes:
				w.handleChange(ctx, path)
			}
		}
	}()

	defer func() {
		timerMu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		timerMu.Unlock()
		w.watcher.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			w.mu.Lock()
			_, watched := w.files[absPath]
			w.mu.Unlock()
			if !watched {
				continue
			}

			timerMu.Lock()
			if t, ok := timers[absPath]; ok {
				t.Stop()
			}
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				select {
				case w.changes <- absPath:
				default:
				}
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context, path string) {
	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	w.mu.Lock()
	state := w.files[path]
	if stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size {
		w.mu.Unlock()
		return
	}
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	if w.OnChange != nil {
		if err := w.OnChange(ctx, path); err != nil && w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
