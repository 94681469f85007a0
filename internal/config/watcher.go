package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// selfWriteWindow is how long after one of the store's own writes a change
// event on the config file is attributed to that write rather than to an
// external edit.
const selfWriteWindow = time.Second

// writeTracker is implemented by stores that can report their own last
// write, so the watcher does not reload what the store just saved.
type writeTracker interface {
	LastWrite() time.Time
}

// Watcher reloads the device state file when it is edited externally
// (e.g. by hand over SSH) and hands the fresh state to a callback.
type Watcher struct {
	store    Store
	onReload func(*models.State)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a Watcher for the given store. onReload is invoked with
// the freshly loaded state after every external change to the config file.
// A broken fsnotify setup is not fatal: the watcher is simply inert.
func NewWatcher(store Store, onReload func(*models.State)) *Watcher {
	w := &Watcher{store: store, onReload: onReload}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: could not create fsnotify watcher", "err", err)
		return w
	}
	w.watcher = fw

	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		slog.Warn("config: could not watch config dir", "err", err)
	}

	go w.watchLoop()
	return w
}

// Close stops the file watcher.
func (w *Watcher) Close() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	path := w.store.Path()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				if wt, ok := w.store.(writeTracker); ok && time.Since(wt.LastWrite()) < selfWriteWindow {
					slog.Debug("config: ignoring event from our own write")
					continue
				}
				state, err := w.store.Load()
				if err != nil {
					slog.Warn("config: failed to reload state", "err", err)
					continue
				}
				slog.Info("config: state file changed on disk, reloaded")
				w.onReload(state)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
