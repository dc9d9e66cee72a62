// internal/subaccount/discovery.go
package subaccount

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/store"
)

const (
	DefaultScanLimit = 10
	MaxScanLimit     = 64
)

var ErrNoConnection = errors.New("no rpc connection")

// Record – существующий субаккаунт авторити.
type Record struct {
	Index     uint16
	PublicKey solana.PublicKey
	User      drift.User
}

// Discovery находит субаккаунты с индексами 0..limit-1.
type Discovery struct {
	session *store.SessionStore
	limit   int
	bus     events.Publisher
	logger  *zap.Logger

	mu        sync.RWMutex
	records   []Record
	client    drift.Client
	authority solana.PublicKey
}

func NewDiscovery(session *store.SessionStore, limit int, bus events.Publisher, logger *zap.Logger) *Discovery {
	if limit <= 0 || limit > MaxScanLimit {
		limit = DefaultScanLimit
	}
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &Discovery{
		session: session,
		limit:   limit,
		bus:     bus,
		logger:  logger.Named("discovery"),
	}
}

// Limit – число проверяемых индексов.
func (d *Discovery) Limit() int { return d.limit }

// Refresh полностью пересобирает набор субаккаунтов одним batched-запросом.
// Без инициализированного клиента набор пуст.
func (d *Discovery) Refresh(ctx context.Context) ([]Record, error) {
	st := d.session.Snapshot()
	if !st.IsInitialized || st.Client == nil || !st.Wallet.Connected() {
		d.set(nil, nil, solana.PublicKey{})
		return nil, nil
	}
	if st.Connection == nil {
		return nil, ErrNoConnection
	}
	client := st.Client

	keys := make([]solana.PublicKey, d.limit)
	for i := range keys {
		pk, err := client.GetUserAccountPublicKey(uint16(i))
		if err != nil {
			return nil, fmt.Errorf("derive subaccount %d: %w", i, err)
		}
		keys[i] = pk
	}

	_, data, err := st.Connection.GetMultipleAccountsData(ctx, keys)
	if err != nil {
		d.logger.Error("Subaccount discovery failed", zap.Error(err))
		return nil, fmt.Errorf("discover subaccounts: %w", err)
	}

	var records []Record
	for i, raw := range data {
		if raw == nil {
			continue
		}
		user, err := client.NewUser(uint16(i))
		if err != nil {
			d.logger.Warn("Failed to build user handle", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, Record{Index: uint16(i), PublicKey: keys[i], User: user})
	}

	d.set(records, client, client.Authority())
	d.logger.Debug("Subaccounts discovered",
		zap.Int("found", len(records)),
		zap.Int("scanned", d.limit))
	return append([]Record(nil), records...), nil
}

func (d *Discovery) set(records []Record, client drift.Client, authority solana.PublicKey) {
	d.mu.Lock()
	d.records = records
	d.client = client
	d.authority = authority
	d.mu.Unlock()

	ev := events.SubaccountsRefreshedEvent{
		BaseEvent: events.NewBase(events.SubaccountsRefreshed),
		Indexes:   make([]uint16, 0, len(records)),
	}
	if !authority.IsZero() {
		ev.Authority = authority.String()
	}
	for _, r := range records {
		ev.Indexes = append(ev.Indexes, r.Index)
	}
	if err := d.bus.Publish(ev); err != nil {
		d.logger.Debug("Discovery event dropped", zap.Error(err))
	}
}

// OnSessionChange перезапускает поиск при смене клиента или кошелька
// и очищает набор после сброса сессии.
func (d *Discovery) OnSessionChange(ctx context.Context, st store.State) error {
	if !st.IsInitialized || st.Client == nil {
		d.mu.RLock()
		empty := d.client == nil && len(d.records) == 0
		d.mu.RUnlock()
		if !empty {
			d.set(nil, nil, solana.PublicKey{})
		}
		return nil
	}

	d.mu.RLock()
	same := d.client == st.Client && d.authority.Equals(st.Client.Authority())
	d.mu.RUnlock()
	if same {
		return nil
	}
	_, err := d.Refresh(ctx)
	return err
}

// Records возвращает копию последнего результата.
func (d *Discovery) Records() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Record(nil), d.records...)
}

// Has сообщает, найден ли субаккаунт с индексом idx.
func (d *Discovery) Has(idx uint16) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.records {
		if r.Index == idx {
			return true
		}
	}
	return false
}
