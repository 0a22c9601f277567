// File: internal/state/watcher.go
package state

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reacts to external edits of the shared records (the control panel
// toggling pause, a peer claiming ownership) without polling every tick.
type Watcher struct {
	store  *Store
	logger *zap.Logger
}

// NewWatcher wraps a store.
func NewWatcher(store *Store, logger *zap.Logger) *Watcher {
	return &Watcher{store: store, logger: logger.Named("statewatch")}
}

// Run blocks until the context is done, invoking onPause with the effective
// pause flag whenever the pause record changes on disk. Watch errors degrade
// to "no live updates": the agent still re-reads records at its own
// boundaries.
func (w *Watcher) Run(ctx context.Context, pauseStale time.Duration, onPause func(paused bool)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("state watcher unavailable", zap.Error(err))
		return nil
	}
	defer fw.Close()

	// Watch the directory, not the file: atomic renames replace the inode.
	if err := fw.Add(w.store.dir); err != nil {
		w.logger.Warn("cannot watch state dir", zap.String("dir", w.store.dir), zap.Error(err))
		return nil
	}

	pausePath := w.store.PausePath()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != pausePath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			paused := w.store.LoadPause(pauseStale)
			w.logger.Info("pause record changed on disk", zap.Bool("paused", paused))
			onPause(paused)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("state watcher error", zap.Error(err))
		}
	}
}
