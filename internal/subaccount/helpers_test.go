package subaccount

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/drift/drifttest"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

type env struct {
	session  *store.SessionStore
	index    *store.SubaccountIndexStore
	conn     *drifttest.Connection
	tracker  *drifttest.Tracker
	recorder *events.Recorder
	wallet   *wallet.Adapter
	clients  []*drifttest.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		conn:     drifttest.NewConnection(),
		tracker:  &drifttest.Tracker{},
		recorder: &events.Recorder{},
		wallet:   wallet.WatchOnly(solana.NewWallet().PublicKey()),
	}
	factory := func(cfg drift.ClientConfig) (drift.Client, error) {
		c := drifttest.NewClient(cfg.Wallet.Authority(), e.tracker)
		e.clients = append(e.clients, c)
		return c, nil
	}
	e.session = store.NewSessionStore(factory, e.recorder, zap.NewNop())
	e.index = store.NewSubaccountIndexStore(filepath.Join(t.TempDir(), store.DefaultStateFile), zap.NewNop())
	return e
}

func (e *env) connect(t *testing.T) *drifttest.Client {
	t.Helper()
	ctx := context.Background()
	require.True(t, e.session.Initialize(ctx, e.conn, e.wallet, drift.EnvMainnet, nil, nil))
	require.True(t, e.session.Subscribe(ctx))
	return e.clients[len(e.clients)-1]
}

// addSubaccount создаёт аккаунт в фейковом RPC и в клиенте.
func (e *env) addSubaccount(t *testing.T, c *drifttest.Client, idx uint16) {
	t.Helper()
	pk, err := drift.GetUserAccountPublicKey(drift.ProgramID, e.wallet.Authority(), idx)
	require.NoError(t, err)
	e.conn.Set(pk, make([]byte, drift.UserAccountSize))
	if c != nil {
		c.Accounts[idx] = &drift.UserAccount{SubAccountID: idx}
	}
}
