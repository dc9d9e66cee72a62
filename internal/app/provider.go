// internal/app/provider.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

var ErrRestoreFailed = errors.New("failed to restore active subaccount")

// ProviderConfig – что нужно для сборки Drift-клиента при подключении кошелька.
type ProviderConfig struct {
	Connection        drift.Connection
	Env               string
	PerpMarketIndexes []uint16
	SpotMarketIndexes []uint16
}

// Provider связывает кошелёк с сессией: подключает клиент, когда кошелёк появился,
// сбрасывает сессию, когда он пропал, и восстанавливает сохранённый субаккаунт.
type Provider struct {
	cfg       ProviderConfig
	session   *store.SessionStore
	index     *store.SubaccountIndexStore
	discovery *subaccount.Discovery
	switcher  *subaccount.Switcher
	bus       events.Publisher
	logger    *zap.Logger

	effectMu sync.Mutex // эффекты применяются по одному

	mu     sync.RWMutex
	wallet *wallet.Adapter
}

func NewProvider(
	cfg ProviderConfig,
	session *store.SessionStore,
	index *store.SubaccountIndexStore,
	discovery *subaccount.Discovery,
	switcher *subaccount.Switcher,
	bus events.Publisher,
	zapLogger *zap.Logger,
) *Provider {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &Provider{
		cfg:       cfg,
		session:   session,
		index:     index,
		discovery: discovery,
		switcher:  switcher,
		bus:       bus,
		logger:    zapLogger.Named("provider"),
	}
}

// Wallet returns the currently connected wallet, nil when disconnected.
func (p *Provider) Wallet() *wallet.Adapter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.wallet
}

// Connect запоминает кошелёк и применяет эффект. Другой кошелёк поверх
// инициализированной сессии сначала сбрасывает её.
func (p *Provider) Connect(ctx context.Context, w *wallet.Adapter) error {
	if !w.Connected() {
		return fmt.Errorf("%w: wallet has no public key", wallet.ErrMissingCapability)
	}
	p.mu.Lock()
	p.wallet = w
	p.mu.Unlock()

	st := p.session.Snapshot()
	if st.IsInitialized && !st.Wallet.Authority().Equals(w.Authority()) {
		p.logger.Info("Wallet changed, resetting session",
			zap.String("from", st.Wallet.Authority().String()),
			zap.String("to", w.Authority().String()))
		p.session.Reset()
	}
	return p.Sync(ctx)
}

// Disconnect забывает кошелёк; инициализированная сессия полностью сбрасывается.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.wallet = nil
	p.mu.Unlock()
	return p.Sync(ctx)
}

// Sync сверяет сессию с кошельком:
// есть ключ, сессия не инициализирована и не грузится ⇒ initializeWithWallet и восстановление субаккаунта;
// ключа нет, сессия инициализирована ⇒ сброс.
func (p *Provider) Sync(ctx context.Context) error {
	p.effectMu.Lock()
	defer p.effectMu.Unlock()

	w := p.Wallet()
	st := p.session.Snapshot()

	switch {
	case w.Connected() && !st.IsInitialized && !st.IsLoading:
		if err := p.InitializeWithWallet(ctx, w); err != nil {
			return err
		}
		return p.Restore(ctx)

	case !w.Connected() && st.IsInitialized:
		p.session.Reset()
		if _, err := p.discovery.Refresh(ctx); err != nil {
			p.logger.Debug("Discovery clear failed", zap.Error(err))
		}
		p.notify(events.LevelInfo, "Wallet", "Disconnected")
	}
	return nil
}

// InitializeWithWallet: проверка возможностей кошелька, инициализация клиента,
// подписка и проверка существования аккаунта (только предупреждение).
func (p *Provider) InitializeWithWallet(ctx context.Context, w *wallet.Adapter) error {
	log := logger.WithOperation(p.logger, "initialize_with_wallet")

	if err := w.Validate(); err != nil {
		log.Error("Wallet validation failed", zap.Error(err))
		p.notify(events.LevelError, "Wallet", err.Error())
		return err
	}

	log.Info("Initializing drift session",
		zap.String("authority", w.Authority().String()),
		zap.String("env", p.cfg.Env))

	if !p.session.Initialize(ctx, p.cfg.Connection, w, p.cfg.Env, p.cfg.PerpMarketIndexes, p.cfg.SpotMarketIndexes) {
		return p.sessionErr("initialize")
	}
	if !p.session.Subscribe(ctx) {
		return p.sessionErr("subscribe")
	}

	if !p.session.GetUserAccount(ctx) {
		if err := p.session.Snapshot().Err; err != nil {
			log.Warn("Could not check user account", zap.Error(err))
		} else {
			log.Warn("User account not found, deposit to create one")
		}
	}

	log.Info("Drift session ready")
	return nil
}

func (p *Provider) sessionErr(step string) error {
	err := p.session.Snapshot().Err
	if err == nil {
		err = fmt.Errorf("%s drift session failed", step)
	}
	p.notify(events.LevelError, "Drift", err.Error())
	return err
}

// Restore пересобирает список субаккаунтов и переключается на сохранённый индекс,
// при неудаче на субаккаунт 0.
func (p *Provider) Restore(ctx context.Context) error {
	if _, err := p.discovery.Refresh(ctx); err != nil {
		p.logger.Warn("Subaccount discovery failed", zap.Error(err))
	}

	stored := p.index.Active()
	if p.switcher.Switch(ctx, stored) {
		p.logger.Info("Restored stored subaccount", zap.Uint16("index", stored))
		return nil
	}
	if stored == 0 {
		return ErrRestoreFailed
	}

	// индекс 0 сохраняет сам Switch, только если переключение удалось
	p.logger.Warn("Stored subaccount unavailable, falling back to 0", zap.Uint16("stored", stored))
	if p.switcher.Switch(ctx, 0) {
		return nil
	}
	return ErrRestoreFailed
}

func (p *Provider) notify(level events.NotificationLevel, title, msg string) {
	if err := p.bus.Publish(events.Notify(level, title, msg)); err != nil {
		p.logger.Debug("Notification dropped", zap.Error(err))
	}
}
