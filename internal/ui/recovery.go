package ui

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

var ErrTooManyRestarts = errors.New("UI crashed too many times")

// RecoveryHandler manages UI panic recovery
type RecoveryHandler struct {
	logger       *zap.Logger
	restartDelay time.Duration
	maxRestarts  int
	restartCount int
	mu           sync.Mutex
	program      *tea.Program
	createUI     func() (tea.Model, []tea.ProgramOption)

	// run запускает модель; подменяется в тестах.
	run func(rh *RecoveryHandler, model tea.Model, opts []tea.ProgramOption) error
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(logger *zap.Logger, createUI func() (tea.Model, []tea.ProgramOption)) *RecoveryHandler {
	return &RecoveryHandler{
		logger:       logger,
		restartDelay: 2 * time.Second,
		maxRestarts:  5,
		createUI:     createUI,
		run:          runProgram,
	}
}

func runProgram(rh *RecoveryHandler, model tea.Model, opts []tea.ProgramOption) error {
	p := tea.NewProgram(model, opts...)
	rh.mu.Lock()
	rh.program = p
	rh.mu.Unlock()

	_, err := p.Run()
	return err
}

// RunWithRecovery runs the UI and restarts it after a crash until ctx is done
// or the restart budget is spent. A normal exit returns nil.
func (rh *RecoveryHandler) RunWithRecovery(ctx context.Context) error {
	for {
		err := rh.runUI()
		if err == nil {
			return nil
		}

		rh.mu.Lock()
		rh.restartCount++
		count := rh.restartCount
		rh.mu.Unlock()

		if count > rh.maxRestarts {
			return fmt.Errorf("%w (%d): %v", ErrTooManyRestarts, rh.maxRestarts, err)
		}

		rh.logger.Error("UI crashed, will restart",
			zap.Error(err),
			zap.Int("restart_count", count),
			zap.Duration("delay", rh.restartDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rh.restartDelay):
		}
	}
}

// runUI runs the UI with panic recovery
func (rh *RecoveryHandler) runUI() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("UI panic: %v", r)
			rh.logger.Error("UI panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	model, opts := rh.createUI()
	if err := rh.run(rh, model, opts); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// Stop gracefully stops the UI
func (rh *RecoveryHandler) Stop() {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	if rh.program != nil {
		rh.program.Quit()
		rh.program = nil
	}
}

// Send delivers a message to the running program, if any.
func (rh *RecoveryHandler) Send(msg tea.Msg) {
	rh.mu.Lock()
	p := rh.program
	rh.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// GetRestartCount returns the number of restarts
func (rh *RecoveryHandler) GetRestartCount() int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.restartCount
}

// SafeUIWrapper wraps UI operations with panic recovery
type SafeUIWrapper struct {
	model  tea.Model
	logger *zap.Logger
}

// NewSafeUIWrapper creates a new safe UI wrapper
func NewSafeUIWrapper(model tea.Model, logger *zap.Logger) *SafeUIWrapper {
	return &SafeUIWrapper{
		model:  model,
		logger: logger,
	}
}

// Init wraps the Init method with panic recovery
func (sw *SafeUIWrapper) Init() (cmd tea.Cmd) {
	defer sw.recoverFromPanic("Init", &cmd)
	return sw.model.Init()
}

// Update wraps the Update method with panic recovery.
// После паники модель остаётся прежней, сообщение теряется.
func (sw *SafeUIWrapper) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer sw.recoverFromPanic("Update", &cmd)
	model = sw
	next, cmd := sw.model.Update(msg)
	sw.model = next
	return sw, cmd
}

// View wraps the View method with panic recovery
func (sw *SafeUIWrapper) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			sw.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = "UI Error: View crashed. Press Ctrl+C to exit."
		}
	}()
	return sw.model.View()
}

// recoverFromPanic recovers from panics in UI methods
func (sw *SafeUIWrapper) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		sw.logger.Error("UI method panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}
