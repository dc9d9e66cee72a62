package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/driftoor/internal/events"
)

// EventSource – часть events.Bus, нужная мосту.
type EventSource interface {
	SubscribeFunc(eventType events.EventType, fn func(context.Context, events.Event) error) events.Subscription
}

// forwardedEvents – события, которые доходят до экранов.
var forwardedEvents = []events.EventType{
	events.SessionChanged,
	events.SubaccountsRefreshed,
	events.SubaccountSwitched,
	events.PositionsUpdated,
	events.NotificationRaised,
}

// EventBridge пересылает события шины в UI как DomainEventMsg.
type EventBridge struct {
	mu   sync.Mutex
	subs []events.Subscription
}

// NewEventBridge subscribes to the dashboard events and forwards them through send.
// send must not block; UpdateSender.SendUpdate or NonBlockingBus.Send fit.
func NewEventBridge(src EventSource, send func(tea.Msg)) *EventBridge {
	b := &EventBridge{}
	for _, t := range forwardedEvents {
		b.subs = append(b.subs, src.SubscribeFunc(t, func(_ context.Context, e events.Event) error {
			send(DomainEventMsg{Event: e})
			return nil
		}))
	}
	return b
}

// Close unsubscribes the bridge. Safe to call twice.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
}
