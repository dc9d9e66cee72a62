package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockModel is a test UI model
type mockModel struct {
	panicOnInit   bool
	panicOnUpdate bool
	panicOnView   bool
	updateCount   int32
}

func (m *mockModel) Init() tea.Cmd {
	if m.panicOnInit {
		panic("init panic test")
	}
	return nil
}

func (m *mockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	atomic.AddInt32(&m.updateCount, 1)
	if m.panicOnUpdate {
		panic("update panic test")
	}
	return m, tea.Quit
}

func (m *mockModel) View() string {
	if m.panicOnView {
		panic("view panic test")
	}
	return "Test UI"
}

// initOnly "запускает" модель без терминала: только Init.
func initOnly(_ *RecoveryHandler, model tea.Model, _ []tea.ProgramOption) error {
	model.Init()
	return nil
}

func newTestHandler(createUI func() (tea.Model, []tea.ProgramOption)) *RecoveryHandler {
	h := NewRecoveryHandler(zap.NewNop(), createUI)
	h.restartDelay = time.Millisecond
	h.run = initOnly
	return h
}

func TestRecoveryHandlerNormalExit(t *testing.T) {
	h := newTestHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{}, nil
	})

	require.NoError(t, h.RunWithRecovery(context.Background()))
	assert.Zero(t, h.GetRestartCount())
}

func TestRecoveryHandlerRestartsAfterPanic(t *testing.T) {
	var created int32
	h := newTestHandler(func() (tea.Model, []tea.ProgramOption) {
		n := atomic.AddInt32(&created, 1)
		return &mockModel{panicOnInit: n <= 2}, nil
	})

	require.NoError(t, h.RunWithRecovery(context.Background()))
	assert.Equal(t, 2, h.GetRestartCount())
	assert.Equal(t, int32(3), atomic.LoadInt32(&created))
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	h := newTestHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{panicOnInit: true}, nil
	})
	h.maxRestarts = 2

	err := h.RunWithRecovery(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyRestarts))
	assert.Equal(t, 3, h.GetRestartCount())
}

func TestRecoveryHandlerStopsOnContext(t *testing.T) {
	h := newTestHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{panicOnInit: true}, nil
	})
	h.restartDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithRecovery(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithRecovery did not return after cancel")
	}
}

func TestRecoveryHandlerRunError(t *testing.T) {
	boom := errors.New("tty lost")
	h := newTestHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{}, nil
	})
	h.maxRestarts = 0
	h.run = func(*RecoveryHandler, tea.Model, []tea.ProgramOption) error { return boom }

	err := h.RunWithRecovery(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tty lost")
}

func TestSafeUIWrapper(t *testing.T) {
	logger := zap.NewNop()

	t.Run("init panic", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{panicOnInit: true}, logger)
		assert.NotPanics(t, func() { assert.Nil(t, w.Init()) })
	})

	t.Run("update panic keeps wrapper", func(t *testing.T) {
		inner := &mockModel{panicOnUpdate: true}
		w := NewSafeUIWrapper(inner, logger)

		var model tea.Model
		var cmd tea.Cmd
		assert.NotPanics(t, func() { model, cmd = w.Update(nil) })
		assert.Same(t, w, model)
		assert.Nil(t, cmd)
		assert.Equal(t, int32(1), atomic.LoadInt32(&inner.updateCount))
	})

	t.Run("update passes through", func(t *testing.T) {
		w := NewSafeUIWrapper(&mockModel{}, logger)
		model, cmd := w.Update(nil)
		assert.Same(t, w, model)
		assert.NotNil(t, cmd)
	})

	t.Run("view panic", func(t *testing.T) {
		model := &mockModel{}
		w := NewSafeUIWrapper(model, logger)
		assert.Equal(t, "Test UI", w.View())

		model.panicOnView = true
		assert.Equal(t, "UI Error: View crashed. Press Ctrl+C to exit.", w.View())
	})
}
