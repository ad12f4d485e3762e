// Package loader decodes thumbnails in the background with a bounded pool.
package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"leftright/internal/imaging"
	"leftright/internal/logger"
	"leftright/internal/models"

	"golang.org/x/sync/errgroup"
)

// Loader feeds image paths to a fixed number of decode workers and
// publishes results into a ThumbnailCache.
type Loader struct {
	decode  imaging.Decoder
	maxDim  int
	workers int
	cache   *models.ThumbnailCache
	logger  logger.Logger

	onLoaded   func(path string, thumb *models.Thumbnail)
	onFailed   func(path string, err error)
	onProgress func(done, total int)

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	wake   chan struct{}
	exited chan struct{}

	mu      sync.Mutex
	backlog []string
	pending map[string]bool
	// stale marks in-flight paths whose file moved; their result is dropped
	stale map[string]bool
	// retry marks stale paths that were moved back and need a fresh decode
	retry   map[string]bool
	done    int
	total   int
	started bool
	closed  bool

	timings *timings
}

// Config controls pool size and decode limits.
type Config struct {
	Workers      int
	MaxDimension int
	Decoder      imaging.Decoder
}

// New creates a loader. Call Start before enqueuing work.
func New(cfg Config, cache *models.ThumbnailCache, log logger.Logger) *Loader {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Decoder == nil {
		cfg.Decoder = imaging.Decode
	}

	ctx, cancel := context.WithCancel(context.Background())
	group := new(errgroup.Group)
	group.SetLimit(cfg.Workers)

	return &Loader{
		decode:  cfg.Decoder,
		maxDim:  cfg.MaxDimension,
		workers: cfg.Workers,
		cache:   cache,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		wake:    make(chan struct{}, 1),
		exited:  make(chan struct{}),
		pending: make(map[string]bool),
		stale:   make(map[string]bool),
		retry:   make(map[string]bool),
		timings: newTimings(),
	}
}

// SetLoadedCallback is called from a worker goroutine after each decode
func (l *Loader) SetLoadedCallback(fn func(path string, thumb *models.Thumbnail)) {
	l.onLoaded = fn
}

// SetFailedCallback is called from a worker goroutine when a decode fails
func (l *Loader) SetFailedCallback(fn func(path string, err error)) {
	l.onFailed = fn
}

// SetProgressCallback is called after every settled path
func (l *Loader) SetProgressCallback(fn func(done, total int)) {
	l.onProgress = fn
}

// Start launches the dispatcher. It is a no-op after the first call.
func (l *Loader) Start() {
	l.mu.Lock()
	if l.started || l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.logger.Debug("Loader", "starting", map[string]interface{}{
		"workers":       l.workers,
		"max_dimension": l.maxDim,
	})
	go l.dispatch()
}

// Enqueue schedules paths after any work already waiting. Paths that are
// loaded, failed or already pending are skipped.
func (l *Loader) Enqueue(paths ...string) int {
	return l.add(paths, false)
}

// Prioritize schedules paths ahead of the backlog, keeping their order.
func (l *Loader) Prioritize(paths ...string) int {
	return l.add(paths, true)
}

// Preload makes sure the current image and the next ahead images are next
// in line.
func (l *Loader) Preload(queue *models.Queue, ahead int) int {
	return l.Prioritize(queue.Window(ahead)...)
}

func (l *Loader) add(paths []string, front bool) int {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}

	fresh := 0
	scheduled := make([]string, 0, len(paths))
	for _, path := range paths {
		if l.cache.Settled(path) {
			continue
		}
		if l.pending[path] {
			// already handed to a worker unless it is still in the backlog
			if front && l.unqueueLocked(path) {
				scheduled = append(scheduled, path)
			}
			continue
		}
		l.pending[path] = true
		fresh++
		scheduled = append(scheduled, path)
	}

	if front {
		l.backlog = append(scheduled, l.backlog...)
	} else {
		l.backlog = append(l.backlog, scheduled...)
	}
	l.total += fresh
	done, total := l.done, l.total
	l.mu.Unlock()

	if len(scheduled) > 0 {
		l.signal()
	}
	if fresh > 0 && l.onProgress != nil {
		l.onProgress(done, total)
	}
	return fresh
}

// Moved follows a file to its new path. A settled cache entry is re-keyed.
// Otherwise the decode of from is withdrawn, or its result discarded if a
// worker already has it, and to is scheduled ahead of the backlog. It reports whether a new decode was scheduled.
func (l *Loader) Moved(from, to string) bool {
	if l.cache.Settled(from) {
		l.cache.Rename(from, to)
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	if l.pending[from] {
		if l.unqueueLocked(from) {
			delete(l.pending, from)
			l.total--
		} else {
			l.stale[from] = true
		}
	}
	if l.stale[to] {
		// moved back while the old decode is still running
		l.retry[to] = true
		l.mu.Unlock()
		l.cache.Delete(from)
		return true
	}
	l.mu.Unlock()

	l.cache.Delete(from)
	l.cache.Delete(to)
	return l.Prioritize(to) > 0
}

// unqueueLocked removes path from the backlog and reports whether it was there.
func (l *Loader) unqueueLocked(path string) bool {
	for i, p := range l.backlog {
		if p == path {
			l.backlog = append(l.backlog[:i], l.backlog[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Loader) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loader) next() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.backlog) == 0 {
		return "", false
	}
	path := l.backlog[0]
	l.backlog = l.backlog[1:]
	return path, true
}

// dispatch hands backlog entries to the errgroup. group.Go blocks while all
// workers are busy.
func (l *Loader) dispatch() {
	defer close(l.exited)

	for {
		path, ok := l.next()
		if !ok {
			select {
			case <-l.wake:
				continue
			case <-l.ctx.Done():
				return
			}
		}

		if l.ctx.Err() != nil {
			return
		}

		l.group.Go(func() error {
			l.load(path)
			return nil
		})
	}
}

func (l *Loader) load(path string) {
	if l.ctx.Err() != nil {
		return
	}

	start := time.Now()
	thumb, err := l.decode(path, l.maxDim)
	l.timings.record(formatOf(path), time.Since(start), err != nil)

	l.mu.Lock()
	stale, retry := l.stale[path], l.retry[path]
	delete(l.stale, path)
	delete(l.retry, path)
	l.mu.Unlock()

	switch {
	case stale:
		l.logger.Debug("Loader", "dropped result for moved file", map[string]interface{}{
			"path": path,
		})
	case err != nil:
		l.cache.MarkFailed(path, err)
		l.logger.Warning("Loader", "failed to load image", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	default:
		l.cache.Put(path, thumb)
		l.logger.Debug("Loader", "image loaded", map[string]interface{}{
			"path":     path,
			"width":    thumb.Width,
			"height":   thumb.Height,
			"duration": time.Since(start).String(),
		})
	}

	l.mu.Lock()
	delete(l.pending, path)
	l.done++
	done, total := l.done, l.total
	l.mu.Unlock()

	switch {
	case stale:
	case err != nil:
		if l.onFailed != nil {
			l.onFailed(path, err)
		}
	default:
		if l.onLoaded != nil {
			l.onLoaded(path, thumb)
		}
	}
	if l.onProgress != nil {
		l.onProgress(done, total)
	}
	if retry {
		l.Prioritize(path)
	}
}

// Progress returns how many enqueued paths have settled out of the total
func (l *Loader) Progress() (done, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done, l.total
}

// Loading reports whether any enqueued path is still outstanding
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done < l.total
}

// Fraction returns progress in [0, 1]; an idle loader reports 1
func (l *Loader) Fraction() float64 {
	done, total := l.Progress()
	if total == 0 {
		return 1
	}
	return float64(done) / float64(total)
}

// Stats returns decode timings keyed by file extension
func (l *Loader) Stats() map[string]FormatStats {
	return l.timings.snapshot()
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Shutdown cancels waiting work and blocks until in-flight decodes return.
func (l *Loader) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	started := l.started
	l.backlog = nil
	l.mu.Unlock()

	l.cancel()
	if started {
		<-l.exited
	}
	l.group.Wait()

	l.logger.Info("Loader", "decode statistics", l.timings.fields())
	l.logger.Debug("Loader", "stopped", nil)
}
