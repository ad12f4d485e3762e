package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"leftright/internal/logger"
)

// DefaultStepTimeout bounds how long a single component may take to stop.
const DefaultStepTimeout = 10 * time.Second

type Shutdownable interface {
	Shutdown()
}

type step struct {
	name      string
	component Shutdownable
}

// Manager stops registered components in reverse order, once.
type Manager struct {
	steps   []step
	logger  logger.Logger
	timeout time.Duration
	mu      sync.Mutex
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	// onSignal runs after a signal-triggered shutdown, typically to quit the UI
	onSignal func()
}

func NewManager(log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		logger:  log,
		timeout: DefaultStepTimeout,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetStepTimeout overrides DefaultStepTimeout
func (m *Manager) SetStepTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

// OnSignal sets the hook run after a signal-triggered shutdown
func (m *Manager) OnSignal(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSignal = fn
}

func (m *Manager) Register(name string, component Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step{name: name, component: component})
}

// Listen shuts down on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()

			m.mu.Lock()
			hook := m.onSignal
			m.mu.Unlock()
			if hook != nil {
				hook()
			}
		case <-m.done:
		}
	}()
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return
	default:
		close(m.done)
	}
	steps := append([]step(nil), m.steps...)
	timeout := m.timeout
	m.mu.Unlock()

	m.logger.Info("ShutdownManager", "shutdown sequence initiated", map[string]interface{}{
		"components": len(steps),
	})

	m.cancel()

	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			s.component.Shutdown()
		}()

		select {
		case <-finished:
			m.logger.Debug("ShutdownManager", "component stopped", map[string]interface{}{
				"component": s.name,
			})
		case <-time.After(timeout):
			m.logger.Warning("ShutdownManager", "component shutdown timeout", map[string]interface{}{
				"component": s.name,
			})
		}
	}

	m.logger.Info("ShutdownManager", "shutdown sequence completed", nil)
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Func adapts a plain function, such as a log file close, to Shutdownable.
type Func func()

func (f Func) Shutdown() {
	f()
}
