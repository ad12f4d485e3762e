package main

import (
	"fmt"
	"io"
	"runtime"

	"leftright/internal/config"
	"leftright/internal/controllers"
	"leftright/internal/imaging"
	"leftright/internal/loader"
	"leftright/internal/logger"
	"leftright/internal/models"
	"leftright/internal/shutdown"
	"leftright/internal/sorter"
	"leftright/internal/views"
	"leftright/internal/watcher"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

// Application owns the window and the components behind it.
type Application struct {
	cfg     *config.Config
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger

	controller *controllers.MainController
	view       *views.MainView
	loader     *loader.Loader
	watcher    *watcher.Watcher
	shutdown   *shutdown.Manager
}

// NewApplication wires the components for cfg. cfg must already be validated.
func NewApplication(cfg *config.Config) (*Application, error) {
	appLogger, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetMetadata(&fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	window.CenterOnScreen()

	appLogger.Info("Application", "starting", map[string]interface{}{
		"version":    AppVersion,
		"dir":        cfg.Dir,
		"categories": cfg.Categories,
		"workers":    cfg.Workers,
		"watch":      cfg.Watch,
		"go_version": runtime.Version(),
	})

	manager := shutdown.NewManager(appLogger)
	if logCloser != nil {
		manager.Register("log file", shutdown.Func(func() { logCloser.Close() }))
	}

	cache := models.NewThumbnailCache()
	thumbLoader := loader.New(loader.Config{
		Workers:      cfg.Workers,
		MaxDimension: cfg.MaxDimension,
		Decoder:      imaging.Decode,
	}, cache, appLogger)
	manager.Register("loader", thumbLoader)

	application := &Application{
		cfg:      cfg,
		fyneApp:  fyneApp,
		window:   window,
		logger:   appLogger,
		loader:   thumbLoader,
		shutdown: manager,
	}

	var changes controllers.ChangeSource
	if cfg.Watch {
		w, err := watcher.New(cfg.Dir, watcher.DefaultDebounce, appLogger)
		if err != nil {
			// sorting still works without live updates
			appLogger.Warning("Application", "directory watcher unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			application.watcher = w
			manager.Register("watcher", w)
			changes = w
		}
	}

	application.view = views.NewMainView(window, cfg)
	application.controller = controllers.NewMainController(
		sorter.New(cfg.Dir, appLogger),
		thumbLoader,
		cache,
		changes,
		application.view,
		cfg,
		appLogger,
	)
	manager.Register("controller", application.controller)

	application.setupWindowEvents()
	return application, nil
}

func newLogger(cfg *config.Config) (logger.Logger, io.Closer, error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		return logger.NewConsoleLogger(level), nil, nil
	}
	log, closer, err := logger.NewFileLogger(cfg.LogFile, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return log, closer, nil
}

// Run starts the controller and blocks in the fyne event loop.
func (a *Application) Run() error {
	a.shutdown.OnSignal(func() {
		fyne.Do(a.fyneApp.Quit)
	})
	a.shutdown.Listen()

	if err := a.controller.Start(a.cfg.Categories); err != nil {
		a.shutdown.Shutdown()
		return err
	}

	a.window.ShowAndRun()

	a.shutdown.Shutdown()
	a.logger.Info("Application", "terminated", nil)
	return nil
}

func (a *Application) setupWindowEvents() {
	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "window closed", nil)
	})
}
