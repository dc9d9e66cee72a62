// internal/subaccount/switcher.go
package subaccount

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/store"
)

// Switcher меняет активный субаккаунт. Запросы сериализуются;
// запрос, который перекрыт более новым, не меняет состояние.
type Switcher struct {
	session *store.SessionStore
	index   *store.SubaccountIndexStore
	bus     events.Publisher
	logger  *zap.Logger

	epoch atomic.Uint64
	mu    sync.Mutex
}

func NewSwitcher(session *store.SessionStore, index *store.SubaccountIndexStore, bus events.Publisher, logger *zap.Logger) *Switcher {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &Switcher{
		session: session,
		index:   index,
		bus:     bus,
		logger:  logger.Named("switcher"),
	}
}

// Epoch – номер последнего запроса.
func (s *Switcher) Epoch() uint64 { return s.epoch.Load() }

func (s *Switcher) superseded(epoch uint64) bool { return s.epoch.Load() != epoch }

// Switch делает idx активным субаккаунтом. Возвращает false, если клиента нет,
// запрос перекрыт или любой шаг завершился ошибкой.
func (s *Switcher) Switch(ctx context.Context, idx uint16) bool {
	if s.session.Snapshot().Client == nil {
		s.notify(events.LevelError, "Switch failed", "Drift client not initialized")
		return false
	}

	epoch := s.epoch.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.superseded(epoch) {
		s.logger.Debug("Switch superseded", zap.Uint16("to", idx), zap.Uint64("epoch", epoch))
		return false
	}

	client := s.session.Snapshot().Client
	if client == nil {
		s.notify(events.LevelError, "Switch failed", "Drift client not initialized")
		return false
	}
	from := s.index.Active()

	// новый handle подписывается до того, как клиент и сохранённый индекс
	// переключатся: при ошибке ничего не меняется
	user, err := client.NewUser(idx)
	if err == nil {
		err = user.Subscribe(ctx)
	}
	if err != nil {
		s.logger.Error("Failed to subscribe switched user", zap.Uint16("to", idx), zap.Error(err))
		s.release(user)
		s.fail(from, idx, epoch, err)
		return false
	}
	if s.superseded(epoch) {
		s.logger.Debug("Switch superseded", zap.Uint16("to", idx), zap.Uint64("epoch", epoch))
		s.release(user)
		return false
	}

	prevActive := client.ActiveSubAccountID()
	if err := client.SwitchActiveUser(ctx, idx); err != nil {
		s.logger.Error("Failed to switch active user", zap.Uint16("to", idx), zap.Error(err))
		s.release(user)
		s.fail(from, idx, epoch, err)
		return false
	}
	if s.superseded(epoch) {
		s.logger.Debug("Switch superseded", zap.Uint16("to", idx), zap.Uint64("epoch", epoch))
		if err := client.SwitchActiveUser(context.WithoutCancel(ctx), prevActive); err != nil {
			s.logger.Warn("Failed to restore active user", zap.Uint16("to", prevActive), zap.Error(err))
		}
		s.release(user)
		return false
	}

	if err := s.index.SetActive(idx); err != nil {
		s.logger.Warn("Failed to persist subaccount index", zap.Uint16("index", idx), zap.Error(err))
	}

	s.session.UpdateUser(user)

	s.logger.Info("Switched subaccount", zap.Uint16("from", from), zap.Uint16("to", idx))
	s.notify(events.LevelSuccess, "Subaccount", fmt.Sprintf("Switched to Subaccount %d", idx))
	s.publish(events.SubaccountSwitchedEvent{
		BaseEvent: events.NewBase(events.SubaccountSwitched),
		From:      from,
		To:        idx,
		Epoch:     epoch,
		Success:   true,
	})
	return true
}

func (s *Switcher) release(user drift.User) {
	if user == nil {
		return
	}
	if err := user.Unsubscribe(); err != nil {
		s.logger.Debug("Failed to release user handle", zap.Error(err))
	}
}

func (s *Switcher) fail(from, to uint16, epoch uint64, err error) {
	s.notify(events.LevelError, "Switch failed", fmt.Sprintf("Failed to switch to Subaccount %d: %v", to, err))
	s.publish(events.SubaccountSwitchedEvent{
		BaseEvent: events.NewBase(events.SubaccountSwitched),
		From:      from,
		To:        to,
		Epoch:     epoch,
	})
}

func (s *Switcher) notify(level events.NotificationLevel, title, msg string) {
	s.publish(events.Notify(level, title, msg))
}

func (s *Switcher) publish(e events.Event) {
	if err := s.bus.Publish(e); err != nil {
		s.logger.Debug("Switch event dropped", zap.Error(err))
	}
}
