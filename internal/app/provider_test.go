package app

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

func TestInitializeWithWalletRequiresSigning(t *testing.T) {
	h := newHarness(t)
	w := wallet.WatchOnly(solana.NewWallet().PublicKey())

	err := h.provider.Connect(context.Background(), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrMissingCapability)

	st := h.session.Snapshot()
	assert.False(t, st.IsInitialized)
	assert.Nil(t, st.Client)
	assert.Empty(t, h.clients, "no client is built before the capability check passes")
	assert.NotEmpty(t, notifications(h.recorder, events.LevelError))
}

func TestConnectRejectsEmptyWallet(t *testing.T) {
	h := newHarness(t)
	err := h.provider.Connect(context.Background(), &wallet.Adapter{})
	assert.ErrorIs(t, err, wallet.ErrMissingCapability)
}

func TestConnectRestoresStoredSubaccount(t *testing.T) {
	h := newHarness(t)
	w := signingWallet(t)
	h.addSubaccount(t, w.Authority(), 0)
	h.addSubaccount(t, w.Authority(), 2)
	require.NoError(t, h.index.SetActive(2))

	require.NoError(t, h.provider.Connect(context.Background(), w))

	st := h.session.Snapshot()
	assert.True(t, st.IsSubscribed)
	require.NotNil(t, st.User)
	assert.Equal(t, uint16(2), st.User.SubAccountID())
	assert.Equal(t, uint16(2), st.Client.ActiveSubAccountID())
	assert.Equal(t, uint16(2), h.index.Active())
	assert.Equal(t, 1, h.tracker.ActiveUsers())

	var found []uint16
	for _, r := range h.provider.discovery.Records() {
		found = append(found, r.Index)
	}
	assert.Equal(t, []uint16{0, 2}, found)
}

func TestRestoreFallsBackToZero(t *testing.T) {
	h := newHarness(t)
	w := signingWallet(t)
	h.addSubaccount(t, w.Authority(), 0)
	require.NoError(t, h.index.SetActive(3))
	h.reject[3] = true

	require.NoError(t, h.provider.Connect(context.Background(), w))

	st := h.session.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, uint16(0), st.User.SubAccountID())
	assert.Equal(t, uint16(0), h.index.Active())
}

func TestRestoreFailsWhenZeroFails(t *testing.T) {
	h := newHarness(t)
	w := signingWallet(t)
	h.reject[0] = true

	err := h.provider.Connect(context.Background(), w)
	assert.ErrorIs(t, err, ErrRestoreFailed)
	// сессия остаётся подписанной на субаккаунт по умолчанию
	assert.True(t, h.session.Snapshot().IsSubscribed)
}

func TestRestoreFallbackFailureKeepsStoredIndex(t *testing.T) {
	h := newHarness(t)
	w := signingWallet(t)
	require.NoError(t, h.index.SetActive(3))
	h.reject[3] = true
	h.reject[0] = true

	err := h.provider.Connect(context.Background(), w)
	assert.ErrorIs(t, err, ErrRestoreFailed)
	assert.Equal(t, uint16(3), h.index.Active())
}

func TestDisconnectResetsSession(t *testing.T) {
	h := newHarness(t)
	w := signingWallet(t)
	h.addSubaccount(t, w.Authority(), 0)
	ctx := context.Background()

	require.NoError(t, h.provider.Connect(ctx, w))
	require.True(t, h.session.Snapshot().IsInitialized)

	require.NoError(t, h.provider.Disconnect(ctx))

	st := h.session.Snapshot()
	assert.Equal(t, store.PhaseIdle, st.Phase)
	assert.False(t, st.IsInitialized)
	assert.False(t, st.IsSubscribed)
	assert.Nil(t, st.Client)
	assert.Nil(t, st.User)
	assert.Zero(t, h.tracker.ActiveClients())
	assert.Zero(t, h.tracker.ActiveUsers())
	assert.Empty(t, h.provider.discovery.Records())
	assert.Nil(t, h.provider.Wallet())
}

func TestDisconnectWithoutSessionIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.provider.Disconnect(context.Background()))
	assert.Equal(t, store.PhaseIdle, h.session.Snapshot().Phase)
	assert.Empty(t, h.recorder.Events())
}

func TestConnectOtherWalletReplacesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w1, w2 := signingWallet(t), signingWallet(t)

	require.NoError(t, h.provider.Connect(ctx, w1))
	require.NoError(t, h.provider.Connect(ctx, w2))

	st := h.session.Snapshot()
	assert.Equal(t, w2.Authority(), st.Client.Authority())
	assert.Equal(t, 1, h.tracker.ActiveClients())
	assert.Equal(t, 1, h.tracker.ActiveUsers())
}

func TestSyncIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := signingWallet(t)

	require.NoError(t, h.provider.Connect(ctx, w))
	require.NoError(t, h.provider.Sync(ctx))
	require.NoError(t, h.provider.Sync(ctx))

	assert.Len(t, h.clients, 1)
	assert.Equal(t, 1, h.tracker.ActiveClients())
}
