package library

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hunterwarburton/fva/internal/logger"
)

// Watcher reloads a JSONStore when its file changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *JSONStore
	// OnReload, if set, is called after every reload attempt.
	OnReload func(err error)
}

// NewWatcher watches the directory holding the store's file. Watching the
// directory catches editors that replace the file by renaming.
func NewWatcher(store *JSONStore) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(store.Path())); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{watcher: w, store: store}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			err := w.store.Reload()
			if err != nil {
				logger.Warn("Library reload failed, keeping previous catalog: %v", err)
			}
			if w.OnReload != nil {
				w.OnReload(err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Library watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
