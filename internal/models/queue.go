package models

import "sync"

// Queue is the ordered list of images still waiting to be sorted, together
// with the index of the one currently on screen.
type Queue struct {
	mu      sync.RWMutex
	paths   []string
	current int
}

// NewQueue creates a queue positioned at the first path
func NewQueue(paths []string) *Queue {
	q := &Queue{}
	q.Reset(paths)
	return q
}

// Reset replaces the queue contents and rewinds to the first image
func (q *Queue) Reset(paths []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.paths = append(make([]string, 0, len(paths)), paths...)
	q.current = -1
	if len(q.paths) > 0 {
		q.current = 0
	}
}

// Current returns the image on screen
func (q *Queue) Current() (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current < 0 || q.current >= len(q.paths) {
		return "", false
	}
	return q.paths[q.current], true
}

// CurrentIndex returns the current position, or -1 when the queue is empty
func (q *Queue) CurrentIndex() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current
}

// RemoveCurrent drops the image on screen; the next one takes its place
func (q *Queue) RemoveCurrent() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 || q.current >= len(q.paths) {
		return "", false
	}

	removed := q.paths[q.current]
	q.paths = append(q.paths[:q.current], q.paths[q.current+1:]...)
	q.clampLocked()
	return removed, true
}

// InsertAtCurrent puts path back on screen at the current position
func (q *Queue) InsertAtCurrent(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 {
		q.paths = append(q.paths, path)
		q.current = len(q.paths) - 1
		return
	}

	q.paths = append(q.paths, "")
	copy(q.paths[q.current+1:], q.paths[q.current:])
	q.paths[q.current] = path
}

// Append adds path at the end unless it is already queued
func (q *Queue) Append(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexLocked(path) >= 0 {
		return false
	}
	q.paths = append(q.paths, path)
	if q.current < 0 {
		q.current = 0
	}
	return true
}

// Remove drops path wherever it is in the queue
func (q *Queue) Remove(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexLocked(path)
	if idx < 0 {
		return false
	}

	q.paths = append(q.paths[:idx], q.paths[idx+1:]...)
	if idx < q.current {
		q.current--
	}
	q.clampLocked()
	return true
}

// Contains reports whether path is queued
func (q *Queue) Contains(path string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.indexLocked(path) >= 0
}

// Window returns the current image and up to ahead images after it
func (q *Queue) Window(ahead int) []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current < 0 {
		return nil
	}
	end := q.current + ahead + 1
	if end > len(q.paths) {
		end = len(q.paths)
	}
	out := make([]string, end-q.current)
	copy(out, q.paths[q.current:end])
	return out
}

// Paths returns a copy of the queued paths
func (q *Queue) Paths() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]string, len(q.paths))
	copy(out, q.paths)
	return out
}

// Len returns the number of queued images
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.paths)
}

func (q *Queue) indexLocked(path string) int {
	for i, p := range q.paths {
		if p == path {
			return i
		}
	}
	return -1
}

func (q *Queue) clampLocked() {
	switch {
	case len(q.paths) == 0:
		q.current = -1
	case q.current >= len(q.paths):
		q.current = len(q.paths) - 1
	case q.current < 0:
		q.current = 0
	}
}
