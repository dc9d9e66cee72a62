package ui_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/ui"
)

func receive(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message reached the UI channel")
		return nil
	}
}

// TestEventBridgeDeliversBusEvents: событие шины доходит до канала UI через GlobalBus.
func TestEventBridgeDeliversBusEvents(t *testing.T) {
	logger := zap.NewNop()
	bus := events.NewBus(logger, 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	msgChan := make(chan tea.Msg, 16)
	ui.InitBus(msgChan, logger)
	t.Cleanup(ui.GlobalBus.Close)

	bridge := ui.NewEventBridge(bus, ui.GlobalBus.Send)
	t.Cleanup(bridge.Close)

	require.NoError(t, bus.Publish(events.Notify(events.LevelSuccess, "Switch", "Switched to subaccount 1")))

	msg, ok := receive(t, msgChan).(ui.DomainEventMsg)
	require.True(t, ok)
	n, ok := msg.Event.(events.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, events.LevelSuccess, n.Level)
	assert.Equal(t, "Switched to subaccount 1", n.Message)
}

func TestEventBridgeForwardsEveryDashboardEvent(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	msgChan := make(chan tea.Msg, 16)
	bridge := ui.NewEventBridge(bus, func(m tea.Msg) { msgChan <- m })
	t.Cleanup(bridge.Close)

	published := []events.Event{
		events.SessionChangedEvent{BaseEvent: events.NewBase(events.SessionChanged), Phase: "subscribed"},
		events.SubaccountsRefreshedEvent{BaseEvent: events.NewBase(events.SubaccountsRefreshed), Indexes: []uint16{0, 1}},
		events.SubaccountSwitchedEvent{BaseEvent: events.NewBase(events.SubaccountSwitched), To: 1, Success: true},
		events.PositionsUpdatedEvent{BaseEvent: events.NewBase(events.PositionsUpdated), SubAccountID: 1},
	}
	for _, e := range published {
		require.NoError(t, bus.PublishSync(context.Background(), e))
	}

	got := make(map[events.EventType]bool)
	for range published {
		msg := receive(t, msgChan).(ui.DomainEventMsg)
		got[msg.Event.Type()] = true
	}
	assert.Len(t, got, len(published))
}

func TestEventBridgeCloseStopsForwarding(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	msgChan := make(chan tea.Msg, 4)
	bridge := ui.NewEventBridge(bus, func(m tea.Msg) { msgChan <- m })
	bridge.Close()
	bridge.Close()

	require.NoError(t, bus.PublishSync(context.Background(), events.Notify(events.LevelInfo, "x", "y")))
	assert.Empty(t, msgChan)
}

// TestNonBlockingUpdates verifies UI updates don't block the refresh loop
func TestNonBlockingUpdates(t *testing.T) {
	logger := zap.NewNop()

	msgChan := make(chan tea.Msg, 10)
	ui.InitBus(msgChan, logger)
	defer ui.GlobalBus.Close()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		ui.GlobalBus.Send(ui.SwitchResultMsg{Index: uint16(i % 10), Success: true})
	}
	elapsed := time.Since(start)

	sent, dropped := ui.GlobalBus.GetStats()
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, uint64(10), sent)
	assert.Equal(t, uint64(990), dropped)
}
