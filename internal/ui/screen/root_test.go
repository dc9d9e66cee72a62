package screen

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/monitor"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/state"
)

func newRoot(svc *fakeServices) *RootModel {
	m := NewRootModel(svc, nil, state.NewSnapshotCache(zap.NewNop()))
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	return m
}

func TestRootNavigation(t *testing.T) {
	m := newRoot(servicesWithSubaccounts(0, 1))
	assert.Equal(t, "Initializing...", NewRootModel(newFakeServices(), nil, state.NewSnapshotCache(zap.NewNop())).View())

	m.Update(ui.RouterMsg{To: ui.RouteSubaccounts})
	assert.IsType(t, &SubaccountsScreen{}, m.router.Current())
	assert.Equal(t, 2, m.router.Depth())

	// повторный переход на тот же экран ничего не меняет
	m.Update(ui.RouterMsg{To: ui.RouteSubaccounts})
	assert.Equal(t, 2, m.router.Depth())

	// логи заменяют субаккаунты, а не ложатся сверху
	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	assert.IsType(t, &LogsScreen{}, m.router.Current())
	assert.Equal(t, 2, m.router.Depth())

	m.Update(ui.RouterMsg{To: ui.RouteDashboard})
	assert.Same(t, m.dashboard, m.router.Current())
	assert.Equal(t, 1, m.router.Depth())
}

func TestRootEscReturnsToDashboard(t *testing.T) {
	m := newRoot(newFakeServices())
	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Same(t, m.dashboard, m.router.Current())
}

func TestRootSnapshotReachesDashboardBehindOtherScreen(t *testing.T) {
	svc := newFakeServices()
	m := newRoot(svc)
	m.Update(ui.RouterMsg{To: ui.RouteSubaccounts})

	m.Update(ui.BusMsg{Msg: monitor.SnapshotMsg{Snapshot: sampleSnapshot(svc.authority(), 0)}})
	assert.True(t, m.dashboard.hasSnapshot)
}

func TestRootBusMessageRearmsListener(t *testing.T) {
	m := newRoot(newFakeServices())

	_, cmd := m.Update(ui.BusMsg{Msg: ui.SuccessMsg{Title: "T", Message: "ok"}})
	require.NotNil(t, cmd)
	assert.Len(t, m.dashboard.notices, 1)

	// сообщение не из шины слушателя не перевзводит
	_, cmd = m.Update(ui.SuccessMsg{Title: "T", Message: "direct"})
	assert.Nil(t, cmd)

	ui.PublishSuccess("queued", "Bus")
	_, cmd = m.Update(ui.BusMsg{Msg: ui.SuccessMsg{Title: "T", Message: "again"}})
	done := make(chan tea.Msg, 1)
	go func() { done <- runCmdFirst(cmd) }()
	select {
	case msg := <-done:
		assert.Equal(t, ui.BusMsg{Msg: ui.SuccessMsg{Message: "queued", Title: "Bus"}}, msg)
	case <-time.After(time.Second):
		t.Fatal("bus listener was not re-armed")
	}
}

func TestRootCtrlCQuits(t *testing.T) {
	m := newRoot(newFakeServices())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// runCmdFirst выполняет команду и возвращает первое непустое сообщение.
func runCmdFirst(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if m := runCmdFirst(c); m != nil {
				return m
			}
		}
		return nil
	}
	return msg
}
