package screen

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
	"github.com/rovshanmuradov/driftoor/internal/ui"
)

func servicesWithSubaccounts(indexes ...uint16) *fakeServices {
	svc := newFakeServices()
	for _, idx := range indexes {
		svc.records = append(svc.records, subaccount.Record{Index: idx, PublicKey: solana.NewWallet().PublicKey()})
	}
	return svc
}

func newSubaccounts(svc *fakeServices) *SubaccountsScreen {
	s := NewSubaccountsScreen(svc)
	s.SetSize(100, 30)
	return s
}

func TestSubaccountsLoadsBalances(t *testing.T) {
	svc := servicesWithSubaccounts(0, 1)
	svc.balances = map[uint16]string{0: "$10.00", 1: "N/A"}
	s := newSubaccounts(svc)

	assert.Contains(t, s.View(), "...")

	msgs := runCmd(s.Init())
	require.Len(t, msgs, 1)
	s.Update(msgs[0])

	view := s.View()
	assert.Contains(t, view, "$10.00")
	assert.Contains(t, view, "N/A")
	assert.Contains(t, view, "✓")
	assert.Contains(t, view, "Found: 2")
}

func TestSubaccountsSwitchWithEnter(t *testing.T) {
	svc := servicesWithSubaccounts(0, 1)
	s := newSubaccounts(svc)

	// активный субаккаунт повторно не переключается
	assert.Nil(t, mustUpdate(s, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Contains(t, s.status, "already active")

	s.Update(tea.KeyMsg{Type: tea.KeyDown})
	msgs := runCmd(mustUpdate(s, tea.KeyMsg{Type: tea.KeyEnter}))
	require.Len(t, msgs, 1)
	assert.Equal(t, ui.SwitchResultMsg{Index: 1, Success: true}, msgs[0])
	assert.True(t, s.switching)

	back := runCmd(mustUpdate(s, msgs[0]))
	assert.Equal(t, []tea.Msg{ui.RouterMsg{To: ui.RouteDashboard}}, back)
	assert.False(t, s.switching)
	assert.Equal(t, uint16(1), s.active)
}

func TestSubaccountsQuickSwitchUnknown(t *testing.T) {
	svc := servicesWithSubaccounts(0, 1)
	s := newSubaccounts(svc)

	assert.Nil(t, mustUpdate(s, keyRunes("5")))
	assert.True(t, s.statusErr)
	assert.Contains(t, s.View(), "Subaccount #5 not found")
	assert.Empty(t, svc.switched)
}

func TestSubaccountsSwitchFailure(t *testing.T) {
	svc := servicesWithSubaccounts(0, 1)
	svc.switchOK = false
	s := newSubaccounts(svc)

	msgs := runCmd(mustUpdate(s, keyRunes("1")))
	require.Len(t, msgs, 1)
	assert.Nil(t, mustUpdate(s, msgs[0]))
	assert.Equal(t, uint16(0), s.active)
	assert.Contains(t, s.View(), "Switch to subaccount #1 failed")
}

func TestSubaccountsCopyAddress(t *testing.T) {
	svc := servicesWithSubaccounts(0)
	s := newSubaccounts(svc)

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(text string) error {
		copied = text
		return nil
	}
	defer func() { copyToClipboard = orig }()

	s.Update(keyRunes("y"))
	assert.Equal(t, svc.records[0].PublicKey.String(), copied)
	assert.False(t, s.statusErr)

	copyToClipboard = func(string) error { return errors.New("no clipboard") }
	s.Update(keyRunes("y"))
	assert.True(t, s.statusErr)
}

func TestSubaccountsRescan(t *testing.T) {
	svc := servicesWithSubaccounts(0)
	s := newSubaccounts(svc)

	msgs := runCmd(mustUpdate(s, keyRunes("r")))
	require.Len(t, msgs, 1)
	assert.True(t, s.loading)

	// пока идёт сканирование, событие не перезагружает список
	svc.records = append(svc.records, subaccount.Record{Index: 2, PublicKey: solana.NewWallet().PublicKey()})
	s.Update(ui.DomainEventMsg{Event: events.SubaccountsRefreshedEvent{BaseEvent: events.NewBase(events.SubaccountsRefreshed)}})
	assert.Len(t, s.records, 1)

	balances := runCmd(mustUpdate(s, msgs[0]))
	assert.Len(t, s.records, 2)
	require.Len(t, balances, 1)
	assert.IsType(t, ui.SubaccountBalancesMsg{}, balances[0])
}
