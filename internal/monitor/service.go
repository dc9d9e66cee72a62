// internal/monitor/service.go
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/position"
	"github.com/rovshanmuradov/driftoor/internal/store"
)

const DefaultRefreshInterval = 5 * time.Second

// EventSource is the subscribe side of the event bus.
type EventSource interface {
	SubscribeFunc(eventType events.EventType, fn func(context.Context, events.Event) error) events.Subscription
}

// Sink получает каждый свежий снимок (журнал, экспорт).
type Sink interface {
	Write(snap position.Snapshot) error
}

// RefresherConfig configuration for Refresher
type RefresherConfig struct {
	Session   *store.SessionStore
	Events    EventSource
	Bus       events.Publisher
	History   *PnLHistory
	Throttler *SnapshotThrottler
	Sinks     []Sink
	Interval  time.Duration
	Logger    *zap.Logger
}

// Refresher перечитывает позиции активного субаккаунта: после подписки сессии,
// после переключения субаккаунта и по таймеру.
type Refresher struct {
	cfg     RefresherConfig
	logger  *zap.Logger
	trigger chan struct{}

	refreshMu sync.Mutex

	mu        sync.RWMutex
	latest    position.Snapshot
	hasLatest bool
}

func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NopPublisher{}
	}
	return &Refresher{
		cfg:     cfg,
		logger:  cfg.Logger.Named("refresher"),
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests a refresh without blocking; repeated calls coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if r.cfg.Events != nil {
		subs := []events.Subscription{
			r.cfg.Events.SubscribeFunc(events.SessionChanged, events.Typed(r.onSessionChanged)),
			r.cfg.Events.SubscribeFunc(events.SubaccountSwitched, events.Typed(r.onSubaccountSwitched)),
		}
		defer func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.loop(gctx)
		return nil
	})
	if r.cfg.Throttler != nil {
		g.Go(func() error {
			r.cfg.Throttler.Run(gctx.Done())
			return nil
		})
	}

	r.logger.Info("Refresher started", zap.Duration("interval", r.cfg.Interval))
	err := g.Wait()
	r.logger.Info("Refresher stopped")
	return err
}

func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.trigger:
			r.Refresh(ctx)
		}
	}
}

func (r *Refresher) onSessionChanged(_ context.Context, ev events.SessionChangedEvent) error {
	if ev.IsSubscribed && !ev.IsLoading {
		r.Trigger()
	}
	return nil
}

func (r *Refresher) onSubaccountSwitched(_ context.Context, ev events.SubaccountSwitchedEvent) error {
	if ev.Success {
		r.Trigger()
	}
	return nil
}

// Refresh fetches a snapshot for the current session.
// Returns false when there is no subscribed session or the user changed mid-fetch.
func (r *Refresher) Refresh(ctx context.Context) (position.Snapshot, bool) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	st := r.cfg.Session.Snapshot()
	if !st.IsSubscribed || st.Client == nil || st.User == nil {
		return position.Snapshot{}, false
	}

	snap := position.FetchSnapshot(ctx, st.Client, st.User)
	if cur := r.cfg.Session.Snapshot().User; cur != st.User {
		r.logger.Debug("Discarding snapshot of replaced user",
			zap.Uint16("subaccount", snap.SubAccount))
		return snap, false
	}

	r.mu.Lock()
	r.latest = snap
	r.hasLatest = true
	r.mu.Unlock()

	if snap.Err != nil {
		r.logger.Warn("Snapshot fetched with errors",
			zap.Uint16("subaccount", snap.SubAccount),
			zap.Error(snap.Err))
	}
	if snap.StaleErr != nil {
		r.logger.Warn("Account refresh failed, continuing with polled data",
			zap.Uint16("subaccount", snap.SubAccount),
			zap.Error(snap.StaleErr))
	}

	if r.cfg.History != nil {
		r.cfg.History.Record(snap)
	}
	if r.cfg.Throttler != nil {
		r.cfg.Throttler.Send(snap)
	}
	for _, s := range r.cfg.Sinks {
		if err := s.Write(snap); err != nil {
			r.logger.Error("Snapshot sink failed", zap.Error(err))
		}
	}

	ev := events.PositionsUpdatedEvent{
		BaseEvent:    events.NewBase(events.PositionsUpdated),
		SubAccountID: snap.SubAccount,
		Exists:       snap.Exists,
		Partial:      snap.Partial(),
	}
	if err := r.cfg.Bus.Publish(ev); err != nil {
		r.logger.Debug("Positions event dropped", zap.Error(err))
	}
	return snap, true
}

// Latest returns the last accepted snapshot.
func (r *Refresher) Latest() (position.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.hasLatest
}
