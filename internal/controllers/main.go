package controllers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"leftright/internal/config"
	"leftright/internal/loader"
	"leftright/internal/logger"
	"leftright/internal/models"
	"leftright/internal/sorter"
	"leftright/internal/views"
	"leftright/internal/views/components"
	"leftright/internal/watcher"

	"fyne.io/fyne/v2"
)

const actionBuffer = 64

// View is the part of the main view the controller drives.
type View interface {
	SetSetupHandler(handler func(string))
	SetSortHandler(handler func(models.Direction))
	SetUndoHandler(handler func())

	ShowSetup(prefill string)
	ShowSorting()
	SetLoadingProgress(done, total int, loading bool)
	RenderBoard(state views.BoardState)
	AnimateSort(card components.Card, dir models.Direction, onLanded func())
	CancelAnimation(path string)
	UpdateStatus(status string)
	ShowError(title string, err error)
}

// ChangeSource delivers filesystem changes, normally a *watcher.Watcher.
type ChangeSource interface {
	Batches() <-chan watcher.Batch
}

// MainController connects the sorter, the thumbnail loader and the watcher
// to the view. Sort and undo run one at a time on the action goroutine.
type MainController struct {
	sorter  *sorter.Sorter
	loader  *loader.Loader
	cache   *models.ThumbnailCache
	changes ChangeSource
	view    View
	logger  logger.Logger

	preloadAhead int

	// ui runs fn on the fyne main goroutine
	ui func(fn func())

	ctx     context.Context
	cancel  context.CancelFunc
	actions chan func()
	wg      sync.WaitGroup

	ready         atomic.Bool
	configured    atomic.Bool
	renderPending atomic.Bool
	stopOnce      sync.Once
}

// NewMainController creates a controller. changes may be nil when watching
// is disabled.
func NewMainController(
	s *sorter.Sorter,
	l *loader.Loader,
	cache *models.ThumbnailCache,
	changes ChangeSource,
	view View,
	cfg *config.Config,
	log logger.Logger,
) *MainController {
	ctx, cancel := context.WithCancel(context.Background())

	mc := &MainController{
		sorter:       s,
		loader:       l,
		cache:        cache,
		changes:      changes,
		view:         view,
		logger:       log,
		preloadAhead: cfg.PreloadAhead,
		ui:           fyne.Do,
		ctx:          ctx,
		cancel:       cancel,
		actions:      make(chan func(), actionBuffer),
	}

	mc.setupViewEventHandlers()
	mc.setupLoaderCallbacks()
	return mc
}

func (mc *MainController) setupViewEventHandlers() {
	mc.view.SetSetupHandler(mc.SubmitSetup)
	mc.view.SetSortHandler(mc.Sort)
	mc.view.SetUndoHandler(mc.Undo)
}

func (mc *MainController) setupLoaderCallbacks() {
	mc.loader.SetProgressCallback(func(done, total int) {
		if done >= total && mc.ready.CompareAndSwap(false, true) {
			mc.logger.Info("MainController", "thumbnails loaded", map[string]interface{}{
				"count": total,
			})
			mc.ui(func() {
				mc.view.SetLoadingProgress(done, total, false)
				mc.view.UpdateStatus("Ready")
			})
			mc.requestRender()
			return
		}
		if !mc.ready.Load() {
			mc.ui(func() {
				mc.view.SetLoadingProgress(done, total, true)
			})
		}
	})
	mc.loader.SetLoadedCallback(func(string, *models.Thumbnail) {
		mc.requestRender()
	})
	mc.loader.SetFailedCallback(func(path string, err error) {
		mc.requestRender()
	})
}

// Start scans the directory, begins background loading and shows either the
// setup screen or, when categories are already known, the sorting screen.
func (mc *MainController) Start(categories []string) error {
	paths, err := mc.sorter.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", mc.sorter.Dir(), err)
	}

	mc.logger.Info("MainController", "starting", map[string]interface{}{
		"dir":    mc.sorter.Dir(),
		"images": len(paths),
	})

	mc.loader.Start()
	if mc.loader.Enqueue(paths...) == 0 {
		mc.ready.Store(true)
		mc.ui(func() {
			mc.view.SetLoadingProgress(0, 0, false)
		})
	} else {
		done, total := mc.loader.Progress()
		mc.ui(func() {
			mc.view.SetLoadingProgress(done, total, !mc.ready.Load())
		})
	}

	mc.wg.Add(1)
	go mc.actionLoop()

	if mc.changes != nil {
		mc.wg.Add(1)
		go mc.watchLoop()
	}

	if len(categories) > 0 {
		mc.enqueue(func() { mc.setupCategories(categories) })
	} else {
		mc.ui(func() { mc.view.ShowSetup("") })
	}
	return nil
}

// SubmitSetup parses the category list typed on the setup screen.
func (mc *MainController) SubmitSetup(input string) {
	names, err := models.ParseCategories(input)
	if err != nil {
		mc.logger.Warning("MainController", "invalid categories", map[string]interface{}{
			"input": input,
			"error": err.Error(),
		})
		mc.ui(func() { mc.view.ShowError("Invalid categories", err) })
		return
	}
	mc.enqueue(func() { mc.setupCategories(names) })
}

func (mc *MainController) setupCategories(names []string) {
	if err := mc.sorter.SetupCategories(names); err != nil {
		mc.logger.Error("MainController", err, map[string]interface{}{
			"categories": names,
		})
		mc.ui(func() {
			mc.view.ShowError("Could not create categories", err)
			mc.view.ShowSetup(strings.Join(names, ", "))
		})
		return
	}
	mc.configured.Store(true)

	for _, bucket := range mc.sorter.Buckets(components.MaxVisibleCards) {
		mc.loader.Enqueue(bucket.Top...)
	}
	mc.loader.Preload(mc.sorter.Queue(), mc.preloadAhead)

	state := mc.boardState()
	mc.ui(func() {
		mc.view.ShowSorting()
		mc.view.RenderBoard(state)
		if mc.ready.Load() {
			mc.view.UpdateStatus("Ready")
		} else {
			mc.view.UpdateStatus("Loading images...")
		}
	})
}

// Sort moves the current image into the category bound to dir. Key presses
// before the first load completes are ignored.
func (mc *MainController) Sort(dir models.Direction) {
	if !mc.acceptingInput() {
		return
	}
	mc.enqueue(func() { mc.sort(dir) })
}

func (mc *MainController) sort(dir models.Direction) {
	record, err := mc.sorter.Sort(dir)
	switch {
	case errors.Is(err, sorter.ErrUnboundDirection):
		return
	case errors.Is(err, sorter.ErrNoCurrentImage):
		mc.ui(func() { mc.view.UpdateStatus("No images left to sort") })
		return
	case err != nil:
		mc.ui(func() { mc.view.ShowError("Move failed", err) })
		return
	}

	mc.loader.Moved(record.From, record.To)
	mc.loader.Preload(mc.sorter.Queue(), mc.preloadAhead)

	thumb, _ := mc.cache.Get(record.To)
	card := components.CardFromThumbnail(record.To, thumb)
	status := fmt.Sprintf("Moved %s to %s", filepath.Base(record.From), record.Category)

	mc.ui(func() {
		mc.view.UpdateStatus(status)
		mc.view.AnimateSort(card, dir, mc.render)
	})
}

// Undo reverts the most recent move.
func (mc *MainController) Undo() {
	if !mc.acceptingInput() {
		return
	}
	mc.enqueue(mc.undo)
}

func (mc *MainController) undo() {
	record, err := mc.sorter.Undo()
	switch {
	case errors.Is(err, sorter.ErrNothingToUndo):
		mc.ui(func() { mc.view.UpdateStatus("Nothing to undo") })
		return
	case err != nil:
		mc.ui(func() { mc.view.ShowError("Undo failed", err) })
		return
	}

	mc.loader.Moved(record.To, record.From)
	mc.loader.Preload(mc.sorter.Queue(), mc.preloadAhead)

	state := mc.boardState()
	status := fmt.Sprintf("Restored %s", filepath.Base(record.From))
	mc.ui(func() {
		mc.view.CancelAnimation(record.To)
		mc.view.RenderBoard(state)
		mc.view.UpdateStatus(status)
	})
}

func (mc *MainController) acceptingInput() bool {
	return mc.configured.Load() && mc.ready.Load() && mc.ctx.Err() == nil
}

// enqueue runs on the UI goroutine and must not block it, so key presses
// beyond the buffer are dropped.
func (mc *MainController) enqueue(action func()) {
	select {
	case mc.actions <- action:
	case <-mc.ctx.Done():
	default:
		mc.logger.Warning("MainController", "action dropped, queue full", nil)
	}
}

// enqueueWait blocks until the action loop takes action or the controller
// stops.
func (mc *MainController) enqueueWait(action func()) bool {
	select {
	case mc.actions <- action:
		return true
	case <-mc.ctx.Done():
		return false
	}
}

func (mc *MainController) actionLoop() {
	defer mc.wg.Done()
	for {
		select {
		case <-mc.ctx.Done():
			return
		case action := <-mc.actions:
			action()
		}
	}
}

func (mc *MainController) watchLoop() {
	defer mc.wg.Done()
	batches := mc.changes.Batches()
	for {
		select {
		case <-mc.ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			if !mc.enqueueWait(func() { mc.applyChanges(batch) }) {
				return
			}
		}
	}
}

func (mc *MainController) applyChanges(batch watcher.Batch) {
	queued, dropped := mc.sorter.Reconcile(batch.Added, batch.Removed)
	for _, path := range dropped {
		mc.cache.Delete(path)
	}
	if len(queued) > 0 {
		mc.loader.Enqueue(queued...)
	}
	if len(queued) == 0 && len(dropped) == 0 {
		return
	}

	status := fmt.Sprintf("%d new, %d removed", len(queued), len(dropped))
	mc.ui(func() { mc.view.UpdateStatus(status) })
	mc.requestRender()
}

// requestRender schedules one redraw, coalescing bursts of loader results.
func (mc *MainController) requestRender() {
	if !mc.configured.Load() || !mc.renderPending.CompareAndSwap(false, true) {
		return
	}
	mc.ui(func() {
		mc.renderPending.Store(false)
		mc.render()
	})
}

// render must run on the UI goroutine.
func (mc *MainController) render() {
	mc.view.RenderBoard(mc.boardState())
}

func (mc *MainController) boardState() views.BoardState {
	snapshots := mc.sorter.Buckets(components.MaxVisibleCards)
	buckets := make([]components.BucketState, len(snapshots))
	for i, snap := range snapshots {
		cards := make([]components.Card, 0, len(snap.Top))
		for _, path := range snap.Top {
			thumb, _ := mc.cache.Get(path)
			cards = append(cards, components.CardFromThumbnail(path, thumb))
		}
		buckets[i] = components.BucketState{
			Direction: snap.Direction,
			Category:  snap.Category,
			Count:     snap.Count,
			Cards:     cards,
		}
	}

	queue := mc.sorter.Queue()
	state := views.BoardState{
		Buckets:   buckets,
		Remaining: queue.Len(),
		Sorted:    len(mc.sorter.History()),
	}
	if path, ok := queue.Current(); ok {
		thumb, _ := mc.cache.Get(path)
		card := components.CardFromThumbnail(path, thumb)
		state.Current = &card
		state.CurrentName = filepath.Base(path)
		if thumb != nil {
			state.CurrentWidth = thumb.Width
			state.CurrentHeight = thumb.Height
		}
	}
	return state
}

// Ready reports whether the initial thumbnail load has finished.
func (mc *MainController) Ready() bool {
	return mc.ready.Load()
}

// Shutdown stops the action and watch goroutines. Pending actions are
// discarded.
func (mc *MainController) Shutdown() {
	mc.stopOnce.Do(func() {
		mc.cancel()
		mc.wg.Wait()
		mc.logger.Debug("MainController", "stopped", nil)
	})
}
