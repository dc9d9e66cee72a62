package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/driftoor/internal/format"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

// RPCStatus represents the current RPC connection status
type RPCStatus struct {
	Known     bool
	Connected bool
	Latency   time.Duration
	Errors    uint64
}

// RPCStatusFromStats сворачивает статистику узлов в один статус.
// Узел считается живым, если у него был хотя бы один успешный вызов.
func RPCStatusFromStats(stats []solbc.NodeStats) RPCStatus {
	if len(stats) == 0 {
		return RPCStatus{}
	}
	st := RPCStatus{Known: true}
	for _, n := range stats {
		st.Errors += n.ErrorCount
		if n.SuccessCount == 0 {
			continue
		}
		if !st.Connected || n.Latency < st.Latency {
			st.Latency = n.Latency
		}
		st.Connected = true
	}
	return st
}

// StatusHeader provides a clean header with essential status information
type StatusHeader struct {
	wallet     string
	phase      string
	subAccount string
	rpcStatus  RPCStatus
	totalPnL   float64
	styles     style.HeaderStyles
	width      int
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	return &StatusHeader{
		wallet: "not connected",
		phase:  "idle",
		styles: style.NewHeaderStyles(style.DefaultPalette()),
	}
}

// SetWallet updates the wallet address display
func (sh *StatusHeader) SetWallet(address string) {
	if address == "" {
		sh.wallet = "not connected"
		return
	}
	sh.wallet = format.ShortenAddress(address)
}

// SetPhase shows the session phase (idle, initializing, ...).
func (sh *StatusHeader) SetPhase(phase string) {
	sh.phase = phase
}

// SetSubAccount shows the active subaccount; empty hides it.
func (sh *StatusHeader) SetSubAccount(label string) {
	sh.subAccount = label
}

// SetRPCStatus updates the RPC connection status
func (sh *StatusHeader) SetRPCStatus(status RPCStatus) {
	sh.rpcStatus = status
}

// SetTotalPnL updates the total PnL display
func (sh *StatusHeader) SetTotalPnL(pnl float64) {
	sh.totalPnL = pnl
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
	if width > 4 {
		sh.styles.Container = sh.styles.Container.Width(width - 4)
	}
}

// View renders the status header
func (sh *StatusHeader) View() string {
	parts := []string{
		sh.styles.Title.Render("Driftoor"),
		sh.styles.Wallet.Render("Wallet: " + sh.wallet),
		sh.styles.Phase.Render("Session: " + sh.phase),
	}
	if sh.subAccount != "" {
		parts = append(parts, sh.styles.Wallet.Render("Subaccount: "+sh.subAccount))
	}
	parts = append(parts, sh.renderRPCStatus(), sh.renderPnLStatus())

	row := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			row = append(row, " | ")
		}
		row = append(row, p)
	}

	return sh.styles.Container.Render(lipgloss.JoinHorizontal(lipgloss.Left, row...))
}

func (sh *StatusHeader) renderRPCStatus() string {
	switch {
	case !sh.rpcStatus.Known:
		return sh.styles.PnLNeutral.Render("RPC: -")
	case sh.rpcStatus.Connected:
		return sh.styles.RPCGood.Render(fmt.Sprintf("RPC: OK (%dms)", sh.rpcStatus.Latency.Milliseconds()))
	default:
		return sh.styles.RPCBad.Render(fmt.Sprintf("RPC: down (%d errors)", sh.rpcStatus.Errors))
	}
}

func (sh *StatusHeader) renderPnLStatus() string {
	renderer := sh.styles.PnLNeutral
	switch {
	case sh.totalPnL > 0:
		renderer = sh.styles.PnLPositive
	case sh.totalPnL < 0:
		renderer = sh.styles.PnLNegative
	}
	return renderer.Render("Total PnL: " + format.FormatUSD(sh.totalPnL))
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 3 // Border + padding + content
}
