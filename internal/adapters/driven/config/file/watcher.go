package file

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Watcher hot-reloads the config file and keeps an atomically-swapped
// snapshot of the fusion tuning, so long-running processes (the MCP
// server in particular) pick up k and weight changes without a restart.
// Readers never block on a reload.
type Watcher struct {
	store    *ConfigStore
	fsw      *fsnotify.Watcher
	snapshot atomic.Pointer[domain.HybridSettings]
	done     chan struct{}
}

// NewWatcher starts watching the store's config file. The directory is
// watched rather than the file itself: editors and our own Save replace
// the file, which would silently drop a file-level watch.
func NewWatcher(store *ConfigStore) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store: store,
		fsw:   fsw,
		done:  make(chan struct{}),
	}
	w.swap()

	go w.run()
	return w, nil
}

// HybridSettings returns the current fusion tuning snapshot, normalised.
// Safe for concurrent use; intended as a services.SettingsFunc.
func (w *Watcher) HybridSettings() domain.HybridSettings {
	return (*w.snapshot.Load()).Normalised()
}

// Close stops the watcher. The last snapshot remains readable.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	target := filepath.Base(w.store.Path())

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.store.Load(); err != nil {
				// Keep serving the previous snapshot.
				logger.Warn("Config reload failed: %v", err)
				continue
			}
			w.swap()
			logger.Debug("Config reloaded from %s", w.store.Path())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) swap() {
	settings := w.store.HybridSettings()
	w.snapshot.Store(&settings)
}
