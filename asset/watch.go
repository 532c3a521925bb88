package asset

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changed files of a directory. It is polled from the
// frame loop and never blocks.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

func NewWatcher(dir string, log *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{watcher: w, log: log}, nil
}

// Changed returns the base names of files written, created or renamed
// since the last call, each once.
func (w *Watcher) Changed() []string {
	var changed []string
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return changed
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if name := filepath.Base(ev.Name); !slices.Contains(changed, name) {
				changed = append(changed, name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return changed
			}
			w.log.Warn("watch shaders", "error", err)
		default:
			return changed
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
