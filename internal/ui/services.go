package ui

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/driftoor/internal/config"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/export"
	"github.com/rovshanmuradov/driftoor/internal/position"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
)

// ServiceProvider provides access to the dashboard services for UI screens
type ServiceProvider interface {
	Context() context.Context
	Logger() *zap.Logger
	Config() *config.Config
	Events() *events.Bus
	RPCStats() []solbc.NodeStats

	// Session
	Session() store.State
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Subaccounts
	Subaccounts() []subaccount.Record
	RefreshSubaccounts(ctx context.Context) error
	SubaccountBalances(ctx context.Context) map[uint16]string
	ActiveSubaccount() uint16
	Switch(ctx context.Context, idx uint16) bool

	// Positions
	RefreshPositions()
	RefreshNow(ctx context.Context) (position.Snapshot, bool)
	Latest() (position.Snapshot, bool)
	PnLSeries(subAccount uint16, limit int) []float64
	Export(format export.ExportFormat) (string, error)
}
