package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

var ErrWatcherClosed = errors.New("watcher closed")

type WatcherOption func(*Watcher)

func WithDebounce(duration time.Duration) WatcherOption {
	return func(watcher *Watcher) {
		if duration > 0 {
			watcher.debounce = duration
		}
	}
}

func WithOnError(fn func(error)) WatcherOption {
	return func(watcher *Watcher) {
		if fn != nil {
			watcher.onError = fn
		}
	}
}

// Watcher reports directories whose listing changed. Only the directories of
// expanded rows are watched, so Sync is called whenever the open set changes.
type Watcher struct {
	debounce time.Duration
	onError  func(error)

	fsWatcher *fsnotify.Watcher
	changes   chan string

	mu      sync.Mutex
	watched map[string]struct{}
	pending map[string]*time.Timer
	closed  bool
}

func NewWatcher(options ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watcher := &Watcher{
		debounce:  DefaultDebounce,
		onError:   func(error) {},
		fsWatcher: fsWatcher,
		changes:   make(chan string, 16),
		watched:   map[string]struct{}{},
		pending:   map[string]*time.Timer{},
	}
	for _, option := range options {
		option(watcher)
	}
	return watcher, nil
}

func (watcher *Watcher) Changes() <-chan string {
	return watcher.changes
}

func (watcher *Watcher) Watch(path string) error {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	if watcher.closed {
		return ErrWatcherClosed
	}
	path = cleanPath(path)
	if _, ok := watcher.watched[path]; ok {
		return nil
	}
	if err := watcher.fsWatcher.Add(path); err != nil {
		return err
	}
	watcher.watched[path] = struct{}{}
	return nil
}

func (watcher *Watcher) Unwatch(path string) {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	path = cleanPath(path)
	if _, ok := watcher.watched[path]; !ok {
		return
	}
	delete(watcher.watched, path)
	_ = watcher.fsWatcher.Remove(path)
	if timer, ok := watcher.pending[path]; ok {
		timer.Stop()
		delete(watcher.pending, path)
	}
}

// Sync makes the watched set equal to paths.
func (watcher *Watcher) Sync(paths []string) {
	want := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		want[cleanPath(path)] = struct{}{}
	}
	for _, path := range watcher.Watched() {
		if _, ok := want[path]; !ok {
			watcher.Unwatch(path)
		}
	}
	for path := range want {
		if err := watcher.Watch(path); err != nil {
			watcher.onError(err)
		}
	}
}

func (watcher *Watcher) Watched() []string {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	paths := make([]string, 0, len(watcher.watched))
	for path := range watcher.watched {
		paths = append(paths, path)
	}
	return paths
}

// Run forwards debounced events until ctx is done or the watcher closes.
func (watcher *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			watcher.schedule(watcher.dirOf(event.Name))
		case err, ok := <-watcher.fsWatcher.Errors:
			if !ok {
				return
			}
			watcher.onError(err)
		}
	}
}

// dirOf maps an event path to the watched directory it belongs to.
func (watcher *Watcher) dirOf(name string) string {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	name = cleanPath(name)
	if _, ok := watcher.watched[name]; ok {
		return name
	}
	return filepath.Dir(name)
}

func (watcher *Watcher) schedule(path string) {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	if watcher.closed {
		return
	}
	if timer, ok := watcher.pending[path]; ok {
		timer.Reset(watcher.debounce)
		return
	}
	watcher.pending[path] = time.AfterFunc(watcher.debounce, func() {
		watcher.fire(path)
	})
}

func (watcher *Watcher) fire(path string) {
	watcher.mu.Lock()
	delete(watcher.pending, path)
	closed := watcher.closed
	watcher.mu.Unlock()
	if closed {
		return
	}
	select {
	case watcher.changes <- path:
	default:
	}
}

func (watcher *Watcher) Close() error {
	watcher.mu.Lock()
	if watcher.closed {
		watcher.mu.Unlock()
		return nil
	}
	watcher.closed = true
	for path, timer := range watcher.pending {
		timer.Stop()
		delete(watcher.pending, path)
	}
	watcher.mu.Unlock()
	return watcher.fsWatcher.Close()
}
