// Package rebuildwatch watches a single dataset file for changes and
// triggers a full rebuild on write, adapted from internal/watcher's
// per-path debounce pattern. Unlike internal/watcher's incremental
// re-indexing, every trigger here runs the whole pipeline again — NN-
// Descent has no notion of patching a graph in place, so there is no
// incremental path to take.
package rebuildwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RebuildFunc runs a full build pass. Errors are logged, not fatal — the
// watcher keeps running after a failed rebuild so a subsequent save can
// retry.
type RebuildFunc func() error

// Watcher watches one dataset file and calls Rebuild whenever it changes.
type Watcher struct {
	fw      *fsnotify.Watcher
	path    string
	rebuild RebuildFunc
}

// New creates a Watcher for path, which must already exist.
func New(path string, rebuild RebuildFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rebuildwatch: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("rebuildwatch: resolving %s: %w", path, err)
	}
	return &Watcher{fw: fw, path: abs, rebuild: rebuild}, nil
}

// Watch adds the dataset file's containing directory to the watch list
// (fsnotify can't reliably watch a single path across editors that save by
// rename-and-replace) and begins processing events, debounced with a
// 500ms quiet period after the last write before a rebuild fires. Blocks
// until done is closed or an unrecoverable error occurs.
func (w *Watcher) Watch(done <-chan struct{}) error {
	dir := filepath.Dir(w.path)
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("rebuildwatch: watching %s: %w", dir, err)
	}

	var pending *time.Timer
	trigger := func() {
		fmt.Fprintf(os.Stderr, "[watch] rebuilding from %s\n", w.path)
		if err := w.rebuild(); err != nil {
			fmt.Fprintf(os.Stderr, "[watch] rebuild error: %v\n", err)
		}
	}

	for {
		select {
		case <-done:
			return w.fw.Close()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(500*time.Millisecond, trigger)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "[watch] error: %v\n", err)
		}
	}
}
