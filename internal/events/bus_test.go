package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusPublishDelivers(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown(context.Background())

	var got atomic.Int32
	sub := bus.SubscribeFunc(NotificationRaised, func(_ context.Context, e Event) error {
		n, ok := e.(NotificationEvent)
		if ok && n.Level == LevelSuccess {
			got.Add(1)
		}
		return nil
	})

	require.NoError(t, bus.Publish(Notify(LevelSuccess, "Subaccount", "Switched to Subaccount 1")))
	assert.Eventually(t, func() bool { return got.Load() == 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), Notify(LevelSuccess, "", "")))
	assert.Equal(t, int32(1), got.Load())
}

// MockHandler реализует Handler
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestBusSubscribeOnlyMatchingType(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	switched := SubaccountSwitchedEvent{BaseEvent: NewBase(SubaccountSwitched), To: 3}

	h := new(MockHandler)
	h.On("Handle", mock.Anything, switched).Return(nil).Once()
	bus.Subscribe(SubaccountSwitched, h)

	require.NoError(t, bus.PublishSync(context.Background(), switched))
	require.NoError(t, bus.PublishSync(context.Background(), Notify(LevelInfo, "", "")))

	h.AssertExpectations(t)
	h.AssertNumberOfCalls(t, "Handle", 1)
}

func TestBusPublishSyncJoinsErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(SessionChanged, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), SessionChangedEvent{BaseEvent: NewBase(SessionChanged)})
	assert.ErrorIs(t, err, boom)
}

func TestBusRejectsAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(Notify(LevelInfo, "", "")), ErrBusClosed)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Publish(Notify(LevelError, "x", "y"))
	_ = r.Publish(SubaccountSwitchedEvent{BaseEvent: NewBase(SubaccountSwitched), To: 2})
	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(SubaccountSwitched), 1)
	assert.Equal(t, NotificationRaised, r.Events()[0].Type())
}
