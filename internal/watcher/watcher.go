// Package watcher reports image files appearing in or leaving the sorting
// directory while the app runs.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"leftright/internal/logger"
	"leftright/internal/models"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches bursts such as a multi-file copy into one update.
const DefaultDebounce = 250 * time.Millisecond

// Batch is one debounced set of changes.
type Batch struct {
	Added   []string
	Removed []string
}

// Empty reports whether the batch carries no changes.
func (b Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.Removed) == 0
}

// Watcher watches a single directory, non-recursively.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   logger.Logger
	fsw      *fsnotify.Watcher
	batches  chan Batch

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New starts watching dir. Category subfolders are not watched: only files
// directly in dir are sortable.
func New(dir string, debounce time.Duration, log logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		dir:      filepath.Clean(dir),
		debounce: debounce,
		logger:   log,
		fsw:      fsw,
		batches:  make(chan Batch, 8),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()

	log.Debug("Watcher", "watching directory", map[string]interface{}{
		"dir": dir,
	})
	return w, nil
}

// Batches delivers debounced changes. It is closed after Shutdown.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

func (w *Watcher) run() {
	defer close(w.stopped)
	defer close(w.batches)

	added := make(map[string]bool)
	removed := make(map[string]bool)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				delete(removed, event.Name)
				added[event.Name] = true
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(added, event.Name)
				removed[event.Name] = true
			default:
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher", err, map[string]interface{}{
				"dir": w.dir,
			})

		case <-timer.C:
			batch := w.settle(added, removed)
			added = make(map[string]bool)
			removed = make(map[string]bool)
			if batch.Empty() {
				continue
			}

			select {
			case w.batches <- batch:
			case <-w.stop:
				return
			}
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	return filepath.Dir(name) == w.dir && models.IsImageFile(name)
}

// settle checks the final on-disk state, since a path can be created and
// renamed away within one debounce window.
func (w *Watcher) settle(added, removed map[string]bool) Batch {
	var batch Batch
	for path := range added {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			batch.Added = append(batch.Added, path)
		}
	}
	for path := range removed {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			batch.Removed = append(batch.Removed, path)
		}
	}
	sort.Strings(batch.Added)
	sort.Strings(batch.Removed)
	return batch
}

// Shutdown stops the watcher and waits for the event loop to exit.
func (w *Watcher) Shutdown() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.stopped
		w.fsw.Close()
		w.logger.Debug("Watcher", "stopped", nil)
	})
}
