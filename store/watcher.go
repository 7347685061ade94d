package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of write events a single store
// rewrite produces.
const debounceDelay = 200 * time.Millisecond

// Watch invalidates the store's in-memory mirror whenever another
// process rewrites the backing file, and processes events until ctx is
// cancelled. Long-running sessions use it so list/search reads stay in
// step with saves made elsewhere. onChange (if non-nil) runs after each
// invalidation.
//
// Only meaningful for file-backed stores; path is the file holding the
// collection.
func (s *Store) Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors and atomic writers replace the file,
	// which would drop a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info("store watcher started", "path", path)

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("store watcher stopped")
			return nil

		case <-debounceCh:
			s.Invalidate()
			logger.Debug("store reloaded after external change")
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				debounceCh = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("store watcher error", "error", err)
		}
	}
}
