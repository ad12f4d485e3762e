package controllers

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"leftright/internal/config"
	"leftright/internal/loader"
	"leftright/internal/logger"
	"leftright/internal/models"
	"leftright/internal/sorter"
	"leftright/internal/views"
	"leftright/internal/views/components"
	"leftright/internal/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type animation struct {
	card     components.Card
	dir      models.Direction
	onLanded func()
}

type fakeView struct {
	mu         sync.Mutex
	setups     []string
	sorting    int
	errors     []string
	statuses   []string
	renders    []views.BoardState
	animations []animation
	cancelled  []string
	cancelMark int
	loading    bool
}

func (v *fakeView) SetSetupHandler(func(string))          {}
func (v *fakeView) SetSortHandler(func(models.Direction)) {}
func (v *fakeView) SetUndoHandler(func())                 {}

func (v *fakeView) ShowSetup(prefill string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setups = append(v.setups, prefill)
}

func (v *fakeView) ShowSorting() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sorting++
}

func (v *fakeView) SetLoadingProgress(done, total int, loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = loading
}

func (v *fakeView) RenderBoard(state views.BoardState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, state)
}

func (v *fakeView) AnimateSort(card components.Card, dir models.Direction, onLanded func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.animations = append(v.animations, animation{card: card, dir: dir, onLanded: onLanded})
}

func (v *fakeView) CancelAnimation(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelled = append(v.cancelled, path)
	v.cancelMark = len(v.renders)
}

func (v *fakeView) UpdateStatus(status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, status)
}

func (v *fakeView) ShowError(title string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, title)
}

func (v *fakeView) sortingShown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sorting > 0
}

func (v *fakeView) lastRender() views.BoardState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return views.BoardState{}
	}
	return v.renders[len(v.renders)-1]
}

func (v *fakeView) animationCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.animations)
}

func (v *fakeView) hasStatus(status string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeChanges struct {
	ch chan watcher.Batch
}

func (f *fakeChanges) Batches() <-chan watcher.Batch {
	return f.ch
}

type fixture struct {
	dir   string
	view  *fakeView
	ctrl  *MainController
	cache *models.ThumbnailCache
}

func quickDecoder(path string, maxDim int) (*models.Thumbnail, error) {
	return &models.Thumbnail{Width: 40, Height: 20}, nil
}

func newFixture(t *testing.T, decode func(string, int) (*models.Thumbnail, error), changes ChangeSource) *fixture {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png", "c.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	log := logger.Nop()
	cfg := config.DefaultConfig()
	cache := models.NewThumbnailCache()
	l := loader.New(loader.Config{Workers: 2, MaxDimension: 64, Decoder: decode}, cache, log)
	t.Cleanup(l.Shutdown)

	view := &fakeView{}
	ctrl := NewMainController(sorter.New(dir, log), l, cache, changes, view, cfg, log)
	ctrl.ui = func(fn func()) { fn() }
	t.Cleanup(ctrl.Shutdown)

	return &fixture{dir: dir, view: view, ctrl: ctrl, cache: cache}
}

func (f *fixture) startSorting(t *testing.T, categories ...string) {
	t.Helper()
	require.NoError(t, f.ctrl.Start(categories))
	require.Eventually(t, func() bool {
		return f.view.sortingShown() && f.ctrl.Ready()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStart_WithoutCategoriesShowsSetup(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)

	require.NoError(t, f.ctrl.Start(nil))

	f.view.mu.Lock()
	assert.Equal(t, []string{""}, f.view.setups)
	f.view.mu.Unlock()
	require.Eventually(t, f.ctrl.Ready, 2*time.Second, 5*time.Millisecond)
}

func TestSubmitSetup_InvalidInputShowsError(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	require.NoError(t, f.ctrl.Start(nil))

	f.ctrl.SubmitSetup("a, b, c, d, e")

	f.view.mu.Lock()
	assert.Equal(t, []string{"Invalid categories"}, f.view.errors)
	f.view.mu.Unlock()
	assert.NoDirExists(t, filepath.Join(f.dir, "a"))
}

func TestSubmitSetup_CreatesCategoriesAndShowsBoard(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	require.NoError(t, f.ctrl.Start(nil))

	f.ctrl.SubmitSetup(" cats , dogs ")

	require.Eventually(t, func() bool {
		return len(f.view.lastRender().Buckets) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.view.sortingShown())
	assert.DirExists(t, filepath.Join(f.dir, "cats"))
	assert.DirExists(t, filepath.Join(f.dir, "dogs"))

	state := f.view.lastRender()
	assert.Equal(t, "dogs", state.Buckets[1].Category)
	assert.Equal(t, 3, state.Remaining)
}

func TestSort_MovesFileAndLandsInBucket(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	f.startSorting(t, "cats", "dogs")

	f.ctrl.Sort(models.Left)

	require.Eventually(t, func() bool { return f.view.animationCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	moved := filepath.Join(f.dir, "cats", "a.jpg")
	assert.FileExists(t, moved)
	assert.NoFileExists(t, filepath.Join(f.dir, "a.jpg"))

	f.view.mu.Lock()
	anim := f.view.animations[0]
	f.view.mu.Unlock()
	assert.Equal(t, moved, anim.card.Path)
	assert.Equal(t, models.Left, anim.dir)
	assert.Equal(t, float32(2), anim.card.Aspect)

	_, ok := f.cache.Get(moved)
	assert.True(t, ok, "thumbnail follows the file")

	anim.onLanded()
	state := f.view.lastRender()
	assert.Equal(t, 1, state.Buckets[0].Count)
	assert.Equal(t, 2, state.Remaining)
	assert.Equal(t, 1, state.Sorted)
	require.NotNil(t, state.Current)
	assert.Equal(t, "b.png", state.CurrentName)
}

func TestSort_UnboundDirectionIsIgnored(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	f.startSorting(t, "cats", "dogs")

	f.ctrl.Sort(models.Down)
	f.ctrl.Sort(models.Right)

	require.Eventually(t, func() bool { return f.view.animationCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.FileExists(t, filepath.Join(f.dir, "dogs", "a.jpg"))

	f.view.mu.Lock()
	assert.Empty(t, f.view.errors)
	f.view.mu.Unlock()
}

func TestUndo_RestoresFileAndCancelsFlight(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	f.startSorting(t, "cats")

	f.ctrl.Sort(models.Left)
	require.Eventually(t, func() bool { return f.view.animationCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.ctrl.Undo()

	original := filepath.Join(f.dir, "a.jpg")
	require.Eventually(t, func() bool {
		f.view.mu.Lock()
		defer f.view.mu.Unlock()
		return len(f.view.cancelled) == 1 && len(f.view.renders) > f.view.cancelMark
	}, 2*time.Second, 5*time.Millisecond)

	assert.FileExists(t, original)
	assert.NoFileExists(t, filepath.Join(f.dir, "cats", "a.jpg"))
	f.view.mu.Lock()
	assert.Equal(t, filepath.Join(f.dir, "cats", "a.jpg"), f.view.cancelled[0])
	f.view.mu.Unlock()

	state := f.view.lastRender()
	require.NotNil(t, state.Current)
	assert.Equal(t, original, state.Current.Path)
	assert.Equal(t, 0, state.Buckets[0].Count)

	_, ok := f.cache.Get(original)
	assert.True(t, ok)
}

func TestUndo_NothingToUndoUpdatesStatus(t *testing.T) {
	f := newFixture(t, quickDecoder, nil)
	f.startSorting(t, "cats")

	f.ctrl.Undo()

	require.Eventually(t, func() bool { return f.view.hasStatus("Nothing to undo") }, 2*time.Second, 5*time.Millisecond)
}

func TestSort_IgnoredUntilThumbnailsLoad(t *testing.T) {
	gate := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }

	decode := func(path string, maxDim int) (*models.Thumbnail, error) {
		<-gate
		return quickDecoder(path, maxDim)
	}
	f := newFixture(t, decode, nil)
	t.Cleanup(release)
	require.NoError(t, f.ctrl.Start([]string{"cats"}))
	require.Eventually(t, f.view.sortingShown, 2*time.Second, 5*time.Millisecond)

	f.view.mu.Lock()
	assert.True(t, f.view.loading)
	f.view.mu.Unlock()

	f.ctrl.Sort(models.Left)
	time.Sleep(50 * time.Millisecond)
	assert.FileExists(t, filepath.Join(f.dir, "a.jpg"))
	assert.Zero(t, f.view.animationCount())

	release()
	require.Eventually(t, f.ctrl.Ready, 2*time.Second, 5*time.Millisecond)

	f.view.mu.Lock()
	assert.False(t, f.view.loading)
	f.view.mu.Unlock()
}

func TestWatchLoop_QueuesNewImages(t *testing.T) {
	changes := &fakeChanges{ch: make(chan watcher.Batch, 1)}
	f := newFixture(t, quickDecoder, changes)
	f.startSorting(t, "cats")

	added := filepath.Join(f.dir, "d.webp")
	require.NoError(t, os.WriteFile(added, []byte("d"), 0o644))
	changes.ch <- watcher.Batch{Added: []string{added}}

	require.Eventually(t, func() bool { return f.view.hasStatus("1 new, 0 removed") }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := f.cache.Get(added)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.view.lastRender().Remaining == 4
	}, 2*time.Second, 5*time.Millisecond)
}

// sortLateArrival starts sorting a, b and c, lets the watcher add d.webp
// whose decode waits on the returned release, and sorts everything so d.webp
// moves into cats before its thumbnail exists.
func sortLateArrival(t *testing.T) (f *fixture, release func()) {
	t.Helper()
	gate := make(chan struct{})
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }

	decode := func(path string, maxDim int) (*models.Thumbnail, error) {
		if filepath.Base(path) == "d.webp" {
			<-gate
		}
		return quickDecoder(path, maxDim)
	}
	changes := &fakeChanges{ch: make(chan watcher.Batch, 1)}
	f = newFixture(t, decode, changes)
	t.Cleanup(release)
	f.startSorting(t, "cats")

	added := filepath.Join(f.dir, "d.webp")
	require.NoError(t, os.WriteFile(added, []byte("d"), 0o644))
	changes.ch <- watcher.Batch{Added: []string{added}}
	require.Eventually(t, func() bool { return f.view.hasStatus("1 new, 0 removed") }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 4; i++ {
		f.ctrl.Sort(models.Left)
	}
	require.Eventually(t, func() bool { return f.view.animationCount() == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.FileExists(t, filepath.Join(f.dir, "cats", "d.webp"))

	f.view.mu.Lock()
	assert.Equal(t, float32(1), f.view.animations[3].card.Aspect, "no thumbnail yet")
	f.view.mu.Unlock()
	return f, release
}

func restoredWithThumbnail(f *fixture, path string) func() bool {
	return func() bool {
		state := f.view.lastRender()
		return state.Current != nil && state.Current.Path == path && state.CurrentWidth == 40
	}
}

func TestSort_PendingThumbnailFollowsFileAndUndo(t *testing.T) {
	f, release := sortLateArrival(t)
	sorted := filepath.Join(f.dir, "cats", "d.webp")

	release()
	require.Eventually(t, func() bool {
		_, ok := f.cache.Get(sorted)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	f.ctrl.Undo()

	original := filepath.Join(f.dir, "d.webp")
	require.Eventually(t, restoredWithThumbnail(f, original), 2*time.Second, 5*time.Millisecond)
	_, ok := f.cache.Get(original)
	assert.True(t, ok)
	assert.False(t, f.cache.Settled(sorted))
}

func TestUndo_BeforePendingThumbnailLoads(t *testing.T) {
	f, release := sortLateArrival(t)

	f.ctrl.Undo()
	original := filepath.Join(f.dir, "d.webp")
	require.Eventually(t, func() bool {
		f.view.mu.Lock()
		defer f.view.mu.Unlock()
		return len(f.view.cancelled) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.FileExists(t, original)

	release()
	require.Eventually(t, restoredWithThumbnail(f, original), 2*time.Second, 5*time.Millisecond)
	assert.False(t, f.cache.Settled(filepath.Join(f.dir, "cats", "d.webp")))
}

func TestWatchLoop_WaitsForRoomInsteadOfDropping(t *testing.T) {
	changes := &fakeChanges{ch: make(chan watcher.Batch)}
	f := newFixture(t, quickDecoder, changes)

	for i := 0; i < actionBuffer; i++ {
		f.ctrl.actions <- func() {}
	}
	f.ctrl.wg.Add(1)
	go f.ctrl.watchLoop()

	// unbuffered, so this returns once the loop holds the batch
	changes.ch <- watcher.Batch{Added: []string{filepath.Join(f.dir, "d.webp")}}

	for i := 0; i < actionBuffer; i++ {
		<-f.ctrl.actions
	}
	select {
	case <-f.ctrl.actions:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher batch never reached the action queue")
	}
}
