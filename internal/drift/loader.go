// internal/drift/loader.go
package drift

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPollInterval – период опроса аккаунтов по умолчанию.
const DefaultPollInterval = time.Second

// AccountCallback получает новые данные аккаунта; data == nil, если аккаунта нет.
type AccountCallback func(data []byte, slot uint64)

type accountToLoad struct {
	publicKey solana.PublicKey
	callbacks map[string]AccountCallback
}

type bufferAndSlot struct {
	buffer []byte
	slot   uint64
}

// AccountLoader опрашивает набор аккаунтов одним getMultipleAccounts и раздаёт изменения подписчикам.
// Опрос запускается при добавлении первого аккаунта и останавливается, когда подписчиков не осталось.
type AccountLoader struct {
	conn     Connection
	interval time.Duration
	logger   *zap.Logger

	mu             sync.Mutex
	accounts       map[solana.PublicKey]*accountToLoad
	buffers        map[solana.PublicKey]bufferAndSlot
	mostRecentSlot uint64

	loadMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAccountLoader(conn Connection, interval time.Duration, logger *zap.Logger) *AccountLoader {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &AccountLoader{
		conn:     conn,
		interval: interval,
		logger:   logger.Named("account-loader"),
		accounts: make(map[solana.PublicKey]*accountToLoad),
		buffers:  make(map[solana.PublicKey]bufferAndSlot),
	}
}

// AddAccount регистрирует callback и возвращает его id.
func (l *AccountLoader) AddAccount(pk solana.PublicKey, cb AccountCallback) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := uuid.New().String()
	acc, ok := l.accounts[pk]
	if !ok {
		acc = &accountToLoad{publicKey: pk, callbacks: make(map[string]AccountCallback)}
		l.accounts[pk] = acc
	}
	acc.callbacks[id] = cb

	l.startPollingLocked()
	return id
}

// RemoveAccount снимает callback; аккаунт без подписчиков перестаёт опрашиваться.
func (l *AccountLoader) RemoveAccount(pk solana.PublicKey, id string) {
	l.mu.Lock()
	acc, ok := l.accounts[pk]
	if ok {
		delete(acc.callbacks, id)
		if len(acc.callbacks) == 0 {
			delete(l.accounts, pk)
			delete(l.buffers, pk)
		}
	}
	empty := len(l.accounts) == 0
	l.mu.Unlock()

	if empty {
		l.stopPolling()
	}
}

// Len возвращает число опрашиваемых аккаунтов.
func (l *AccountLoader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts)
}

// Buffer возвращает последние загруженные данные аккаунта.
func (l *AccountLoader) Buffer(pk solana.PublicKey) ([]byte, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buffers[pk]
	if !ok {
		return nil, 0, false
	}
	return b.buffer, b.slot, true
}

// MostRecentSlot – максимальный слот из полученных ответов.
func (l *AccountLoader) MostRecentSlot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mostRecentSlot
}

type pendingCallback struct {
	cb   AccountCallback
	data []byte
	slot uint64
	key  solana.PublicKey
}

// Load загружает все зарегистрированные аккаунты. Ответы со слотом старше сохранённого игнорируются.
func (l *AccountLoader) Load(ctx context.Context) error {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	l.mu.Lock()
	keys := make([]solana.PublicKey, 0, len(l.accounts))
	for pk := range l.accounts {
		keys = append(keys, pk)
	}
	l.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}

	slot, data, err := l.conn.GetMultipleAccountsData(ctx, keys)
	if err != nil {
		return err
	}

	var pending []pendingCallback

	l.mu.Lock()
	if slot > l.mostRecentSlot {
		l.mostRecentSlot = slot
	}
	for i, pk := range keys {
		acc, ok := l.accounts[pk]
		if !ok {
			continue
		}
		var newBuffer []byte
		if i < len(data) {
			newBuffer = data[i]
		}

		old, seen := l.buffers[pk]
		if seen && slot < old.slot {
			continue
		}
		if seen && bytes.Equal(old.buffer, newBuffer) {
			old.slot = slot
			l.buffers[pk] = old
			continue
		}
		l.buffers[pk] = bufferAndSlot{buffer: newBuffer, slot: slot}
		for _, cb := range acc.callbacks {
			pending = append(pending, pendingCallback{cb: cb, data: newBuffer, slot: slot, key: pk})
		}
	}
	l.mu.Unlock()

	for _, p := range pending {
		l.handleCallback(p)
	}
	return nil
}

func (l *AccountLoader) handleCallback(p pendingCallback) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Account callback panicked",
				zap.String("account", p.key.String()),
				zap.Any("panic", r))
		}
	}()
	p.cb(p.data, p.slot)
}

func (l *AccountLoader) startPollingLocked() {
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.Load(ctx); err != nil && ctx.Err() == nil {
					l.logger.Debug("Account polling failed", zap.Error(err))
				}
			}
		}
	}()
}

func (l *AccountLoader) stopPolling() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close останавливает опрос независимо от числа подписчиков.
func (l *AccountLoader) Close() {
	l.stopPolling()
}
