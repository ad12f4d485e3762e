package sorter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"leftright/internal/logger"
	"leftright/internal/models"
)

// Bucket is the on-disk state of one category.
type Bucket struct {
	Category  string
	Direction models.Direction
	Dir       string
	files     []string
}

// BucketSnapshot is a read-only view of a bucket for rendering.
type BucketSnapshot struct {
	Category  string
	Direction models.Direction
	Count     int
	Top       []string
}

// Sorter moves images from the working directory into category folders and
// keeps the undo stack.
type Sorter struct {
	dir    string
	logger logger.Logger

	mu      sync.Mutex
	queue   *models.Queue
	buckets []*Bucket
	history models.UndoStack
}

// New creates a sorter rooted at dir
func New(dir string, log logger.Logger) *Sorter {
	return &Sorter{
		dir:    dir,
		logger: log,
		queue:  models.NewQueue(nil),
	}
}

// Dir returns the working directory
func (s *Sorter) Dir() string {
	return s.dir
}

// Queue returns the queue of unsorted images
func (s *Sorter) Queue() *models.Queue {
	return s.queue
}

// Scan lists image files directly inside the working directory and resets
// the queue to them.
func (s *Sorter) Scan() ([]string, error) {
	paths, err := listImages(s.dir)
	if err != nil {
		return nil, err
	}

	s.queue.Reset(paths)

	s.logger.Info("Sorter", "directory scanned", map[string]interface{}{
		"dir":    s.dir,
		"images": len(paths),
	})
	return paths, nil
}

// SetupCategories creates one folder per category and binds them to
// directions in order.
func (s *Sorter) SetupCategories(names []string) error {
	if len(names) == 0 {
		return models.ErrNoCategories
	}
	if len(names) > models.MaxCategories {
		return fmt.Errorf("%w: got %d", models.ErrTooManyCategories, len(names))
	}

	buckets := make([]*Bucket, 0, len(names))
	for i, name := range names {
		if err := models.ValidateCategory(name); err != nil {
			return err
		}

		bucketDir := filepath.Join(s.dir, name)
		if err := os.MkdirAll(bucketDir, 0o755); err != nil {
			return fmt.Errorf("failed to create category folder %s: %w", name, err)
		}

		files, err := listImages(bucketDir)
		if err != nil {
			return err
		}

		buckets = append(buckets, &Bucket{
			Category:  name,
			Direction: models.Direction(i),
			Dir:       bucketDir,
			files:     files,
		})
	}

	s.mu.Lock()
	s.buckets = buckets
	s.mu.Unlock()

	s.logger.Info("Sorter", "categories ready", map[string]interface{}{
		"categories": names,
	})

	_, err := s.Scan()
	return err
}

// Categories returns the configured category names in direction order
func (s *Sorter) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.buckets))
	for i, b := range s.buckets {
		names[i] = b.Category
	}
	return names
}

// Sort moves the current image into the category bound to dir.
func (s *Sorter) Sort(dir models.Direction) (models.MoveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buckets) == 0 {
		return models.MoveRecord{}, ErrNotConfigured
	}
	if !dir.Valid() || int(dir) >= len(s.buckets) {
		return models.MoveRecord{}, fmt.Errorf("%w: %s", ErrUnboundDirection, dir)
	}

	from, ok := s.queue.Current()
	if !ok {
		return models.MoveRecord{}, ErrNoCurrentImage
	}

	bucket := s.buckets[dir]
	to := filepath.Join(bucket.Dir, filepath.Base(from))

	if err := moveFile(from, to); err != nil {
		s.logger.Error("Sorter", err, map[string]interface{}{
			"from":     from,
			"category": bucket.Category,
		})
		return models.MoveRecord{}, err
	}

	record := models.NewMoveRecord(from, to, bucket.Category, dir)
	s.history.Push(record)
	s.queue.RemoveCurrent()
	bucket.files = append([]string{to}, bucket.files...)

	s.logger.Debug("Sorter", "image sorted", map[string]interface{}{
		"move_id":  record.ID,
		"file":     filepath.Base(from),
		"category": bucket.Category,
	})
	return record, nil
}

// Undo reverses the newest move. On failure the move stays on the stack.
func (s *Sorter) Undo() (models.MoveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.history.Pop()
	if !ok {
		return models.MoveRecord{}, ErrNothingToUndo
	}

	if _, err := os.Lstat(record.From); err == nil {
		s.history.Push(record)
		return models.MoveRecord{}, fmt.Errorf("%w: %s", ErrOriginalReoccupied, record.From)
	}

	if err := moveFile(record.To, record.From); err != nil {
		s.history.Push(record)
		s.logger.Error("Sorter", err, map[string]interface{}{
			"move_id": record.ID,
			"to":      record.To,
		})
		return models.MoveRecord{}, err
	}

	s.queue.InsertAtCurrent(record.From)
	if int(record.Direction) < len(s.buckets) {
		bucket := s.buckets[record.Direction]
		bucket.files = removePath(bucket.files, record.To)
	}

	s.logger.Debug("Sorter", "move reverted", map[string]interface{}{
		"move_id": record.ID,
		"file":    filepath.Base(record.From),
	})
	return record, nil
}

// Reconcile applies changes seen on disk by the directory watcher. Paths the
// sorter already accounts for, such as its own moves, are no-ops. It returns
// the paths that were actually queued or dropped.
func (s *Sorter) Reconcile(added, removed []string) (queued, dropped []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range removed {
		if s.queue.Remove(path) {
			dropped = append(dropped, path)
		}
	}
	for _, path := range added {
		if filepath.Dir(path) != filepath.Clean(s.dir) || !models.IsImageFile(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if s.queue.Append(path) {
			queued = append(queued, path)
		}
	}

	if len(queued) > 0 || len(dropped) > 0 {
		s.logger.Info("Sorter", "directory changed", map[string]interface{}{
			"queued":  len(queued),
			"dropped": len(dropped),
		})
	}
	return queued, dropped
}

// Buckets returns a snapshot of every bucket with up to top file paths each.
func (s *Sorter) Buckets(top int) []BucketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]BucketSnapshot, len(s.buckets))
	for i, b := range s.buckets {
		n := top
		if n > len(b.files) {
			n = len(b.files)
		}
		visible := make([]string, n)
		copy(visible, b.files[:n])

		out[i] = BucketSnapshot{
			Category:  b.Category,
			Direction: b.Direction,
			Count:     len(b.files),
			Top:       visible,
		}
	}
	return out
}

// History returns the undo stack, oldest first
func (s *Sorter) History() []models.MoveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Snapshot()
}

// CanUndo reports whether there is a move to reverse
func (s *Sorter) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len() > 0
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !models.IsImageFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func removePath(paths []string, target string) []string {
	for i, p := range paths {
		if p == target {
			return append(paths[:i], paths[i+1:]...)
		}
	}
	return paths
}
