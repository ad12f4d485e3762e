package views

import (
	"time"

	"leftright/internal/animation"
	"leftright/internal/config"
	"leftright/internal/models"
	"leftright/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

const AppTitle = "LeftRight"

// BoardState is everything the sorting screen shows for one render.
type BoardState struct {
	Buckets       []components.BucketState
	Current       *components.Card
	CurrentName   string
	CurrentWidth  int
	CurrentHeight int
	Remaining     int
	Sorted        int
}

type flight struct {
	card     components.Card
	onLanded func()
}

// MainView owns the window content: the setup screen and the sorting screen.
type MainView struct {
	window    fyne.Window
	animation config.AnimationConfig

	// UI Components
	setupForm     *components.SetupForm
	setupLoading  *components.LoadingIndicator
	board         *components.SortBoard
	boardLoading  *components.LoadingIndicator
	statusBar     *components.StatusBar
	setupContent  fyne.CanvasObject
	sortContent   fyne.CanvasObject
	boardLoadArea *fyne.Container

	sorting bool
	tracker *animation.Tracker
	flights map[string]flight

	// startAnimation starts the ticker for one flight
	startAnimation func(*fyne.Animation)

	// Event handlers - connected to controller
	setupHandler func(string)
	sortHandler  func(models.Direction)
	undoHandler  func()
}

// NewMainView creates the view and installs its content in window
func NewMainView(window fyne.Window, cfg *config.Config) *MainView {
	view := &MainView{
		window:    window,
		animation: cfg.Animation,
		tracker:   animation.NewTracker(),
		flights:   make(map[string]flight),
		startAnimation: func(a *fyne.Animation) {
			a.Start()
		},
	}

	view.initializeComponents(cfg)
	view.buildLayout()
	view.installKeyBindings()

	return view
}

func (mv *MainView) initializeComponents(cfg *config.Config) {
	mv.setupForm = components.NewSetupForm()
	mv.setupForm.SetSubmitHandler(func(input string) {
		if mv.setupHandler != nil {
			mv.setupHandler(input)
		}
	})
	mv.setupLoading = components.NewLoadingIndicator()
	mv.boardLoading = components.NewLoadingIndicator()
	mv.statusBar = components.NewStatusBar()

	// header and status bar take roughly 80px of the window
	mv.board = components.NewSortBoard(fyne.NewSize(cfg.Window.MinWidth, cfg.Window.MinHeight-80))
}

func newHeader() fyne.CanvasObject {
	return container.NewPadded(
		widget.NewLabelWithStyle(AppTitle, fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}),
	)
}

func (mv *MainView) buildLayout() {
	loadingCorner := container.NewHBox(
		layout.NewSpacer(),
		container.NewGridWrap(fyne.NewSize(220, 80), mv.setupLoading.GetContainer()),
	)
	mv.setupContent = container.NewBorder(
		newHeader(),
		loadingCorner,
		nil,
		container.NewVBox(components.NewShortcutsCard()),
		mv.setupForm.GetContainer(),
	)

	mv.boardLoadArea = container.NewCenter(
		container.NewGridWrap(fyne.NewSize(320, 80), mv.boardLoading.GetContainer()),
	)
	mv.sortContent = container.NewBorder(
		newHeader(),
		mv.statusBar.GetContainer(),
		nil, nil,
		container.NewStack(mv.board, mv.boardLoadArea),
	)

	mv.window.SetContent(mv.setupContent)
}

// installKeyBindings maps the arrow keys and Ctrl+Z. Keys typed into the
// setup entry never reach the canvas handler.
func (mv *MainView) installKeyBindings() {
	canvas := mv.window.Canvas()
	canvas.SetOnTypedKey(mv.handleKey)

	undo := func(fyne.Shortcut) {
		if mv.sorting && mv.undoHandler != nil {
			mv.undoHandler()
		}
	}
	canvas.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}, undo)
	canvas.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierSuper}, undo)
}

func (mv *MainView) handleKey(ev *fyne.KeyEvent) {
	if !mv.sorting || mv.sortHandler == nil {
		return
	}
	if dir, ok := DirectionForKey(ev.Name); ok {
		mv.sortHandler(dir)
	}
}

// DirectionForKey maps arrow keys to sort directions.
func DirectionForKey(key fyne.KeyName) (models.Direction, bool) {
	switch key {
	case fyne.KeyLeft:
		return models.Left, true
	case fyne.KeyRight:
		return models.Right, true
	case fyne.KeyUp:
		return models.Up, true
	case fyne.KeyDown:
		return models.Down, true
	default:
		return 0, false
	}
}

// Event handler setters - called by controller

// SetSetupHandler sets the handler for the submitted category list
func (mv *MainView) SetSetupHandler(handler func(string)) {
	mv.setupHandler = handler
}

// SetSortHandler sets the handler for arrow key presses
func (mv *MainView) SetSortHandler(handler func(models.Direction)) {
	mv.sortHandler = handler
}

// SetUndoHandler sets the handler for Ctrl+Z
func (mv *MainView) SetUndoHandler(handler func()) {
	mv.undoHandler = handler
}

// UI update methods - called by controller on the main goroutine

// ShowSetup switches to the category setup screen
func (mv *MainView) ShowSetup(prefill string) {
	mv.sorting = false
	mv.setupForm.SetText(prefill)
	mv.window.SetContent(mv.setupContent)
	mv.window.Canvas().Focus(mv.setupForm.Entry())
}

// ShowSorting switches to the sorting screen
func (mv *MainView) ShowSorting() {
	mv.sorting = true
	mv.window.SetContent(mv.sortContent)
	mv.window.Canvas().Unfocus()
}

// SetLoadingProgress updates both loading indicators. While loading the
// sorting board is replaced by the progress bar.
func (mv *MainView) SetLoadingProgress(done, total int, loading bool) {
	mv.setupLoading.SetProgress(done, total)
	mv.setupLoading.SetVisible(loading)
	mv.boardLoading.SetProgress(done, total)
	mv.boardLoading.SetVisible(loading)

	if loading {
		mv.board.Hide()
		mv.boardLoadArea.Show()
	} else {
		mv.boardLoadArea.Hide()
		mv.board.Show()
	}
}

// RenderBoard redraws buckets, current image and status
func (mv *MainView) RenderBoard(state BoardState) {
	mv.board.SetBuckets(state.Buckets)
	mv.board.SetCurrent(state.Current)
	mv.statusBar.SetImageInfo(state.CurrentName, state.CurrentWidth, state.CurrentHeight)
	mv.statusBar.SetQueueInfo(state.Remaining, state.Sorted)
}

// AnimateSort flies card from the centre into the bucket for dir and calls
// onLanded once it arrives.
func (mv *MainView) AnimateSort(card components.Card, dir models.Direction, onLanded func()) {
	transition := &animation.Transition{
		Path:       card.Path,
		From:       mv.board.Center(),
		To:         mv.board.BucketCenter(dir),
		Start:      time.Now(),
		Duration:   mv.animation.Duration,
		StartScale: mv.animation.StartScale,
		EndScale:   mv.animation.EndScale,
	}
	mv.tracker.Add(transition)
	mv.flights[card.Path] = flight{card: card, onLanded: onLanded}

	anim := fyne.NewAnimation(mv.animation.Duration, func(p float32) {
		mv.stepAnimations(card.Path, p >= 1)
	})
	anim.Curve = fyne.AnimationLinear
	mv.startAnimation(anim)
}

// CancelAnimation drops the card for path without landing it
func (mv *MainView) CancelAnimation(path string) {
	if mv.tracker.Cancel(path) {
		delete(mv.flights, path)
		mv.stepAnimations("", false)
	}
}

func (mv *MainView) stepAnimations(path string, final bool) {
	frames, finished := mv.tracker.Step(time.Now())
	if final && mv.tracker.Cancel(path) {
		finished = append(finished, path)
	}

	landed := make(map[string]bool, len(finished))
	for _, p := range finished {
		landed[p] = true
	}

	cards := make([]components.FlyingCard, 0, len(frames))
	for _, frame := range frames {
		f, ok := mv.flights[frame.Path]
		if !ok || landed[frame.Path] {
			continue
		}
		cards = append(cards, components.FlyingCard{Card: f.card, Frame: frame})
	}
	mv.board.SetFlying(cards, mv.tracker.Active())

	for _, p := range finished {
		f, ok := mv.flights[p]
		if !ok {
			continue
		}
		delete(mv.flights, p)
		if f.onLanded != nil {
			f.onLanded()
		}
	}
}

// Animating reports whether any card is in flight
func (mv *MainView) Animating() bool {
	return mv.tracker.Active()
}

// UpdateStatus updates the status bar message
func (mv *MainView) UpdateStatus(status string) {
	mv.statusBar.SetStatus(status)
}

// ShowError displays an error dialog
func (mv *MainView) ShowError(title string, err error) {
	mv.statusBar.SetStatus(title)
	dialog.ShowError(err, mv.window)
}
