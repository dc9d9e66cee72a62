package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/drift/drifttest"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

var errSwitch = errors.New("switch rejected")

type harness struct {
	conn     *drifttest.Connection
	tracker  *drifttest.Tracker
	recorder *events.Recorder
	session  *store.SessionStore
	index    *store.SubaccountIndexStore
	provider *Provider

	mu       sync.Mutex
	clients  []*drifttest.Client
	existing map[uint16]bool // субаккаунты, которые есть у любого авторити
	reject   map[uint16]bool // SwitchActiveUser падает для этих индексов
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		conn:     drifttest.NewConnection(),
		tracker:  &drifttest.Tracker{},
		recorder: &events.Recorder{},
		existing: make(map[uint16]bool),
		reject:   make(map[uint16]bool),
	}
	h.session = store.NewSessionStore(h.factory, h.recorder, zap.NewNop())
	h.index = store.NewSubaccountIndexStore(filepath.Join(t.TempDir(), store.DefaultStateFile), zap.NewNop())
	discovery := subaccount.NewDiscovery(h.session, 4, h.recorder, zap.NewNop())
	switcher := subaccount.NewSwitcher(h.session, h.index, h.recorder, zap.NewNop())
	h.provider = NewProvider(ProviderConfig{
		Connection: h.conn,
		Env:        drift.EnvMainnet,
	}, h.session, h.index, discovery, switcher, h.recorder, zap.NewNop())
	return h
}

func (h *harness) factory(cfg drift.ClientConfig) (drift.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := drifttest.NewClient(cfg.Wallet.Authority(), h.tracker)
	for idx := range h.existing {
		c.Accounts[idx] = &drift.UserAccount{SubAccountID: idx}
	}
	c.SwitchHook = func(_ context.Context, idx uint16) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.reject[idx] {
			return errSwitch
		}
		return nil
	}
	h.clients = append(h.clients, c)
	return c, nil
}

// addSubaccount кладёт аккаунт в фейковый RPC для authority и помечает индекс существующим.
func (h *harness) addSubaccount(t *testing.T, authority solana.PublicKey, idx uint16) {
	t.Helper()
	pk, err := drift.GetUserAccountPublicKey(drift.ProgramID, authority, idx)
	require.NoError(t, err)
	h.conn.Set(pk, make([]byte, drift.UserAccountSize))
	h.mu.Lock()
	h.existing[idx] = true
	h.mu.Unlock()
}

func signingWallet(t *testing.T) *wallet.Adapter {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w.Adapter()
}

func notifications(r *events.Recorder, level events.NotificationLevel) []events.NotificationEvent {
	var out []events.NotificationEvent
	for _, e := range r.OfType(events.NotificationRaised) {
		if n, ok := e.(events.NotificationEvent); ok && n.Level == level {
			out = append(out, n)
		}
	}
	return out
}
