package loader

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"leftright/internal/logger"
	"leftright/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fakeDecoder(delay time.Duration) func(string, int) (*models.Thumbnail, error) {
	return func(path string, maxDim int) (*models.Thumbnail, error) {
		time.Sleep(delay)
		return &models.Thumbnail{Width: maxDim, Height: maxDim / 2}, nil
	}
}

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("img-%02d.jpg", i)
	}
	return out
}

func TestLoader_LoadsEverythingAndReportsProgress(t *testing.T) {
	cache := models.NewThumbnailCache()
	l := New(Config{Workers: 4, MaxDimension: 100, Decoder: fakeDecoder(time.Millisecond)}, cache, logger.Nop())

	var mu sync.Mutex
	var last [2]int
	var loaded int32
	l.SetLoadedCallback(func(string, *models.Thumbnail) { atomic.AddInt32(&loaded, 1) })
	l.SetProgressCallback(func(done, total int) {
		mu.Lock()
		if done >= last[0] {
			last = [2]int{done, total}
		}
		mu.Unlock()
	})

	l.Start()
	defer l.Shutdown()

	assert.Equal(t, 10, l.Enqueue(paths(10)...))
	require.Eventually(t, func() bool { return !l.Loading() }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 10, cache.Len())
	assert.EqualValues(t, 10, atomic.LoadInt32(&loaded))
	assert.InDelta(t, 1.0, l.Fraction(), 1e-9)

	mu.Lock()
	assert.Equal(t, [2]int{10, 10}, last)
	mu.Unlock()

	thumb, ok := cache.Get("img-03.jpg")
	require.True(t, ok)
	assert.Equal(t, 100, thumb.Width)
}

func TestLoader_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	decoder := func(path string, maxDim int) (*models.Thumbnail, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &models.Thumbnail{Width: 1, Height: 1}, nil
	}

	l := New(Config{Workers: 3, MaxDimension: 10, Decoder: decoder}, models.NewThumbnailCache(), logger.Nop())
	l.Start()
	defer l.Shutdown()

	l.Enqueue(paths(20)...)
	require.Eventually(t, func() bool { return !l.Loading() }, 2*time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestLoader_SkipsLoadedAndPending(t *testing.T) {
	cache := models.NewThumbnailCache()
	cache.Put("done.jpg", &models.Thumbnail{})

	release := make(chan struct{})
	decoder := func(string, int) (*models.Thumbnail, error) {
		<-release
		return &models.Thumbnail{}, nil
	}

	l := New(Config{Workers: 1, Decoder: decoder}, cache, logger.Nop())
	l.Start()
	defer l.Shutdown()

	assert.Equal(t, 1, l.Enqueue("done.jpg", "new.jpg"))
	assert.Equal(t, 0, l.Enqueue("new.jpg"))

	done, total := l.Progress()
	assert.Equal(t, 0, done)
	assert.Equal(t, 1, total)

	close(release)
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)
}

func TestLoader_FailuresCountAsDone(t *testing.T) {
	cache := models.NewThumbnailCache()
	decoder := func(path string, _ int) (*models.Thumbnail, error) {
		if path == "bad.jpg" {
			return nil, errors.New("corrupt")
		}
		return &models.Thumbnail{}, nil
	}

	l := New(Config{Workers: 2, Decoder: decoder}, cache, logger.Nop())
	var failed []string
	var mu sync.Mutex
	l.SetFailedCallback(func(path string, err error) {
		mu.Lock()
		failed = append(failed, path)
		mu.Unlock()
	})
	l.Start()
	defer l.Shutdown()

	l.Enqueue("good.jpg", "bad.jpg")
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)

	assert.True(t, cache.Settled("bad.jpg"))
	_, ok := cache.Get("bad.jpg")
	assert.False(t, ok)
	mu.Lock()
	assert.Equal(t, []string{"bad.jpg"}, failed)
	mu.Unlock()

	assert.Equal(t, 0, l.Enqueue("bad.jpg"))
}

func TestLoader_PreloadJumpsTheBacklog(t *testing.T) {
	gate := make(chan struct{})
	var order []string
	var mu sync.Mutex
	decoder := func(path string, _ int) (*models.Thumbnail, error) {
		if path == "blocker.jpg" {
			<-gate
		}
		mu.Lock()
		order = append(order, path)
		mu.Unlock()
		return &models.Thumbnail{}, nil
	}

	l := New(Config{Workers: 1, Decoder: decoder}, models.NewThumbnailCache(), logger.Nop())
	l.Start()
	defer l.Shutdown()

	l.Enqueue("blocker.jpg")
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.backlog) == 0
	}, time.Second, time.Millisecond)

	l.Enqueue("a.jpg", "b.jpg", "c.jpg")
	// the dispatcher takes a.jpg and waits for the single worker
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.backlog) == 2
	}, time.Second, time.Millisecond)

	queue := models.NewQueue([]string{"c.jpg", "d.jpg", "e.jpg"})
	assert.Equal(t, 1, l.Preload(queue, 1))

	close(gate)
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"blocker.jpg", "a.jpg", "c.jpg", "d.jpg", "b.jpg"}, order)
}

func TestLoader_ShutdownIsIdempotentAndStopsIntake(t *testing.T) {
	l := New(Config{Workers: 2, Decoder: fakeDecoder(0)}, models.NewThumbnailCache(), logger.Nop())
	l.Start()
	l.Shutdown()
	l.Shutdown()

	assert.Equal(t, 0, l.Enqueue("late.jpg"))
}

func TestLoader_ShutdownWithoutStart(t *testing.T) {
	l := New(Config{}, models.NewThumbnailCache(), logger.Nop())
	l.Shutdown()
	assert.InDelta(t, 1.0, l.Fraction(), 1e-9)
}

func TestLoader_StatsByFormat(t *testing.T) {
	decoder := func(path string, _ int) (*models.Thumbnail, error) {
		if path == "broken.PNG" {
			return nil, errors.New("corrupt")
		}
		return &models.Thumbnail{}, nil
	}

	l := New(Config{Workers: 2, Decoder: decoder}, models.NewThumbnailCache(), logger.Nop())
	l.Start()
	defer l.Shutdown()

	l.Enqueue("a.jpg", "b.JPG", "c.png", "broken.PNG")
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)

	stats := l.Stats()
	assert.Equal(t, 2, stats["jpg"].Count)
	assert.Equal(t, 1, stats["png"].Count)
	assert.Equal(t, 1, stats["png"].Failures)
	assert.GreaterOrEqual(t, stats["jpg"].Max, stats["jpg"].Average())
}

func TestFormatStats_AverageOfEmpty(t *testing.T) {
	assert.Zero(t, FormatStats{}.Average())
	assert.Equal(t, 2*time.Millisecond, FormatStats{Count: 2, Total: 4 * time.Millisecond}.Average())
}

// gatedDecoder blocks every decode until gate closes and reports each path
// as it starts.
func gatedDecoder(gate <-chan struct{}, started chan<- string) func(string, int) (*models.Thumbnail, error) {
	return func(path string, _ int) (*models.Thumbnail, error) {
		started <- path
		<-gate
		return &models.Thumbnail{Width: 8, Height: 8}, nil
	}
}

func loadedPaths(l *Loader) func() []string {
	var mu sync.Mutex
	var loaded []string
	l.SetLoadedCallback(func(path string, _ *models.Thumbnail) {
		mu.Lock()
		loaded = append(loaded, path)
		mu.Unlock()
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), loaded...)
	}
}

func TestLoader_MovedRekeysFinishedThumbnail(t *testing.T) {
	cache := models.NewThumbnailCache()
	thumb := &models.Thumbnail{Width: 3, Height: 2}
	cache.Put("a.jpg", thumb)

	l := New(Config{Decoder: fakeDecoder(0)}, cache, logger.Nop())
	l.Start()
	defer l.Shutdown()

	assert.False(t, l.Moved("a.jpg", "keep/a.jpg"))

	got, ok := cache.Get("keep/a.jpg")
	require.True(t, ok)
	assert.Same(t, thumb, got)
	_, ok = cache.Get("a.jpg")
	assert.False(t, ok)
}

func TestLoader_MovedWithdrawsWaitingDecode(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan string, 8)
	cache := models.NewThumbnailCache()
	l := New(Config{Workers: 1, Decoder: gatedDecoder(gate, started)}, cache, logger.Nop())
	loaded := loadedPaths(l)
	l.Start()
	defer l.Shutdown()

	l.Enqueue("blocker.jpg", "a.jpg", "b.jpg")
	assert.Equal(t, "blocker.jpg", <-started)
	// a.jpg waits on the single worker and b.jpg stays in the backlog
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.backlog) == 1
	}, time.Second, time.Millisecond)

	assert.True(t, l.Moved("b.jpg", "keep/b.jpg"))

	close(gate)
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)

	_, ok := cache.Get("keep/b.jpg")
	assert.True(t, ok)
	assert.False(t, cache.Settled("b.jpg"))
	assert.ElementsMatch(t, []string{"blocker.jpg", "a.jpg", "keep/b.jpg"}, loaded())

	done, total := l.Progress()
	assert.Equal(t, 3, done)
	assert.Equal(t, 3, total)
}

func TestLoader_MovedDropsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan string, 8)
	cache := models.NewThumbnailCache()
	l := New(Config{Workers: 2, Decoder: gatedDecoder(gate, started)}, cache, logger.Nop())
	loaded := loadedPaths(l)
	l.Start()
	defer l.Shutdown()

	l.Enqueue("a.jpg")
	assert.Equal(t, "a.jpg", <-started)

	assert.True(t, l.Moved("a.jpg", "keep/a.jpg"))

	close(gate)
	require.Eventually(t, func() bool { return !l.Loading() }, time.Second, 5*time.Millisecond)

	_, ok := cache.Get("keep/a.jpg")
	assert.True(t, ok)
	assert.False(t, cache.Settled("a.jpg"))
	assert.Equal(t, []string{"keep/a.jpg"}, loaded())
}

func TestLoader_MovedBackWhileDecodingRetries(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan string, 8)
	cache := models.NewThumbnailCache()
	l := New(Config{Workers: 2, Decoder: gatedDecoder(gate, started)}, cache, logger.Nop())
	loaded := loadedPaths(l)
	l.Start()
	defer l.Shutdown()

	l.Enqueue("a.jpg")
	assert.Equal(t, "a.jpg", <-started)

	assert.True(t, l.Moved("a.jpg", "keep/a.jpg"))
	assert.Equal(t, "keep/a.jpg", <-started)
	assert.True(t, l.Moved("keep/a.jpg", "a.jpg"))

	close(gate)
	require.Eventually(t, func() bool {
		_, ok := cache.Get("a.jpg")
		return ok && !l.Loading()
	}, time.Second, 5*time.Millisecond)

	assert.False(t, cache.Settled("keep/a.jpg"))
	assert.Equal(t, []string{"a.jpg"}, loaded())
}

func TestLoader_MovedKeepsFailure(t *testing.T) {
	cache := models.NewThumbnailCache()
	cache.MarkFailed("bad.jpg", errors.New("corrupt"))

	l := New(Config{Decoder: fakeDecoder(0)}, cache, logger.Nop())
	l.Start()
	defer l.Shutdown()

	assert.False(t, l.Moved("bad.jpg", "keep/bad.jpg"))
	assert.True(t, cache.Settled("keep/bad.jpg"))
	assert.False(t, cache.Settled("bad.jpg"))
	assert.False(t, l.Loading())
}
