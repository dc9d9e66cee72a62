// internal/store/session.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

var (
	ErrNotInitialized = errors.New("drift client not initialized")
	ErrNoUser         = errors.New("no user handle")
)

// Phase – стадия жизненного цикла сессии.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseInitialized
	PhaseSubscribed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseInitialized:
		return "initialized"
	case PhaseSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// State – копия состояния сессии. IsSubscribed ⇒ IsInitialized ⇒ Client != nil.
type State struct {
	Connection    drift.Connection
	Wallet        *wallet.Adapter
	Client        drift.Client
	User          drift.User
	Phase         Phase
	IsInitialized bool
	IsSubscribed  bool
	IsLoading     bool
	AccountExists bool
	Err           error
}

// ClientFactory строит Drift-клиент; подменяется в тестах.
type ClientFactory func(cfg drift.ClientConfig) (drift.Client, error)

// DefaultClientFactory оборачивает drift.NewDriftClient.
func DefaultClientFactory(pollInterval time.Duration, logger *zap.Logger) ClientFactory {
	return func(cfg drift.ClientConfig) (drift.Client, error) {
		if cfg.PollInterval == 0 {
			cfg.PollInterval = pollInterval
		}
		return drift.NewDriftClient(cfg, logger)
	}
}

// SessionStore владеет единственными Drift-клиентом и handle пользователя.
// Операции, меняющие сессию, выполняются строго по одной (opMu).
type SessionStore struct {
	opMu sync.Mutex

	mu    sync.RWMutex
	state State

	newClient ClientFactory
	bus       events.Publisher
	logger    *zap.Logger
}

func NewSessionStore(factory ClientFactory, bus events.Publisher, logger *zap.Logger) *SessionStore {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &SessionStore{
		newClient: factory,
		bus:       bus,
		logger:    logger.Named("session"),
	}
}

// Snapshot возвращает копию текущего состояния.
func (s *SessionStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SessionStore) update(fn func(st *State)) State {
	s.mu.Lock()
	fn(&s.state)
	st := s.state
	s.mu.Unlock()

	s.publish(st)
	return st
}

func (s *SessionStore) publish(st State) {
	ev := events.SessionChangedEvent{
		BaseEvent:     events.NewBase(events.SessionChanged),
		Phase:         st.Phase.String(),
		IsInitialized: st.IsInitialized,
		IsSubscribed:  st.IsSubscribed,
		IsLoading:     st.IsLoading,
		Err:           st.Err,
	}
	if st.Wallet.Connected() {
		ev.Authority = st.Wallet.Authority().String()
	}
	if st.User != nil {
		ev.SubAccountID = st.User.SubAccountID()
	}
	if err := s.bus.Publish(ev); err != nil {
		s.logger.Debug("Session event dropped", zap.Error(err))
	}
}

// Initialize освобождает предыдущие клиент и пользователя и строит новый клиент.
// Ошибка попадает в State.Err; возвращается признак успеха.
func (s *SessionStore) Initialize(
	ctx context.Context,
	conn drift.Connection,
	w *wallet.Adapter,
	env string,
	perpMarketIndexes, spotMarketIndexes []uint16,
) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var prevClient drift.Client
	var prevUser drift.User
	s.update(func(st *State) {
		prevClient, prevUser = st.Client, st.User
		st.Client, st.User = nil, nil
		st.IsInitialized, st.IsSubscribed, st.AccountExists = false, false, false
		st.Phase = PhaseInitializing
		st.IsLoading = true
		st.Err = nil
	})
	s.release(prevClient, prevUser)

	if err := ctx.Err(); err != nil {
		s.fail(err, PhaseIdle)
		return false
	}

	client, err := s.newClient(drift.ClientConfig{
		Connection:        conn,
		Wallet:            w,
		Env:               env,
		PerpMarketIndexes: perpMarketIndexes,
		SpotMarketIndexes: spotMarketIndexes,
	})
	if err != nil {
		if client != nil {
			s.release(client, nil)
		}
		s.logger.Error("Failed to initialize drift client", zap.Error(err))
		s.fail(fmt.Errorf("initialize drift client: %w", err), PhaseIdle)
		return false
	}

	s.update(func(st *State) {
		st.Connection = conn
		st.Wallet = w
		st.Client = client
		st.IsInitialized = true
		st.Phase = PhaseInitialized
		st.IsLoading = false
	})
	s.logger.Info("Drift client initialized",
		zap.String("env", env),
		zap.String("authority", w.Authority().String()))
	return true
}

// Subscribe подписывает клиент и пользователя активного субаккаунта.
// При неудаче всё, что успело подписаться, освобождается, клиент остаётся инициализированным.
func (s *SessionStore) Subscribe(ctx context.Context) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st := s.Snapshot()
	if !st.IsInitialized || st.Client == nil {
		s.update(func(st *State) { st.Err = ErrNotInitialized })
		return false
	}
	client := st.Client

	s.update(func(st *State) {
		st.IsLoading = true
		st.Err = nil
	})

	if err := client.Subscribe(ctx); err != nil {
		s.logger.Error("Failed to subscribe drift client", zap.Error(err))
		s.release(client, nil)
		s.fail(fmt.Errorf("subscribe drift client: %w", err), PhaseInitialized)
		return false
	}

	user, err := client.NewUser(client.ActiveSubAccountID())
	if err == nil {
		err = user.Subscribe(ctx)
	}
	if err != nil {
		s.logger.Error("Failed to subscribe user", zap.Error(err))
		s.release(client, user)
		s.fail(fmt.Errorf("subscribe user: %w", err), PhaseInitialized)
		return false
	}

	var prevUser drift.User
	s.update(func(st *State) {
		prevUser = st.User
		st.User = user
		st.IsSubscribed = true
		st.Phase = PhaseSubscribed
		st.IsLoading = false
	})
	if prevUser != nil && prevUser != user {
		s.release(nil, prevUser)
	}
	s.logger.Info("Drift session subscribed", zap.Uint16("subaccount", user.SubAccountID()))
	return true
}

// GetUserAccount обновляет зеркало пользователя и сообщает, создан ли аккаунт в сети.
// Отсутствие аккаунта не ошибка.
func (s *SessionStore) GetUserAccount(ctx context.Context) bool {
	st := s.Snapshot()
	if st.User == nil {
		s.update(func(st *State) { st.Err = ErrNoUser })
		return false
	}

	exists, err := st.User.Exists(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch user account", zap.Error(err))
		s.update(func(st *State) { st.Err = fmt.Errorf("fetch user account: %w", err) })
		return false
	}
	if !exists {
		s.logger.Warn("User account does not exist yet",
			zap.Uint16("subaccount", st.User.SubAccountID()),
			zap.String("pubkey", st.User.PublicKey().String()))
	}
	s.update(func(st *State) { st.AccountExists = exists })
	return exists
}

// Reset отписывает клиент и пользователя и возвращает сессию в Idle.
func (s *SessionStore) Reset() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var client drift.Client
	var user drift.User
	s.update(func(st *State) {
		client, user = st.Client, st.User
		*st = State{Phase: PhaseIdle}
	})
	s.release(client, user)
	s.logger.Info("Drift session reset")
}

// UpdateUser заменяет handle пользователя; предыдущий отписывается, если был подписан.
func (s *SessionStore) UpdateUser(u drift.User) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var prev drift.User
	s.update(func(st *State) {
		prev = st.User
		st.User = u
		st.AccountExists = false
	})
	if prev != nil && prev != u && prev.IsSubscribed() {
		s.release(nil, prev)
	}
}

func (s *SessionStore) fail(err error, phase Phase) {
	s.update(func(st *State) {
		st.Err = err
		st.IsLoading = false
		st.IsSubscribed = false
		st.Phase = phase
		if phase == PhaseIdle {
			st.IsInitialized = false
			st.Client = nil
		}
	})
}

// release – best-effort: ошибки только логируются.
func (s *SessionStore) release(client drift.Client, user drift.User) {
	if user != nil {
		if err := user.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe user", zap.Error(err))
		}
	}
	if client != nil {
		if err := client.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe drift client", zap.Error(err))
		}
	}
}
