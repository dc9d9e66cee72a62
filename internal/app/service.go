// internal/app/service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/driftoor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/driftoor/internal/config"
	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/export"
	"github.com/rovshanmuradov/driftoor/internal/monitor"
	"github.com/rovshanmuradov/driftoor/internal/position"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

const (
	eventBufferSize   = 256
	historySamples    = 500
	throttleInterval  = 200 * time.Millisecond
	journalFlushEvery = time.Second
	balanceFetchLimit = 4
)

var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrNoSnapshot     = errors.New("no positions loaded yet")
)

// ServiceConfig configuration for Service
type ServiceConfig struct {
	Config *config.Config
	Logger *zap.Logger

	// Connection подменяет RPC-клиент (тесты); по умолчанию solbc из конфигурации.
	Connection drift.Connection
	// ClientFactory подменяет сборку Drift-клиента.
	ClientFactory store.ClientFactory
	// UIMessageChannel включает троттлинг снимков для TUI.
	UIMessageChannel chan<- tea.Msg
	// Journal пишет каждый снимок в export_dir/snapshots.jsonl.
	Journal bool
}

// Service собирает граф зависимостей дашборда и управляет его жизненным циклом.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	bus       *events.Bus
	rpc       *solbc.Client
	session   *store.SessionStore
	index     *store.SubaccountIndexStore
	discovery *subaccount.Discovery
	switcher  *subaccount.Switcher
	provider  *Provider
	refresher *monitor.Refresher
	history   *monitor.PnLHistory
	journal   *export.Journal
	exporter  *export.SnapshotExporter
	shutdown  *ShutdownHandler

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu      sync.Mutex
	started bool
	subs    []events.Subscription
}

// NewService creates the dashboard services without starting background work.
func NewService(parentCtx context.Context, sc ServiceConfig) (*Service, error) {
	if sc.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := sc.Config
	log := sc.Logger.Named("service")

	programID, err := cfg.ProgramPublicKey()
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		logger:   log,
		bus:      events.NewBus(sc.Logger, eventBufferSize),
		exporter: export.NewSnapshotExporter(sc.Logger),
		shutdown: NewShutdownHandler(sc.Logger, DefaultShutdownTimeout),
	}
	s.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.bus.Shutdown(ctx)
	})

	conn := sc.Connection
	if conn == nil {
		s.rpc, err = solbc.NewClient(cfg.Endpoints(), solbc.Options{
			Timeout: cfg.RPCTimeout(),
			Retries: cfg.Retries,
		}, sc.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rpc client: %w", err)
		}
		conn = s.rpc
	}

	factory := sc.ClientFactory
	if factory == nil {
		base := store.DefaultClientFactory(cfg.PollInterval(), sc.Logger)
		factory = func(c drift.ClientConfig) (drift.Client, error) {
			c.ProgramID = programID
			return base(c)
		}
	}

	s.session = store.NewSessionStore(factory, s.bus, sc.Logger)
	s.index = store.NewSubaccountIndexStore(cfg.StateFile, sc.Logger)
	s.discovery = subaccount.NewDiscovery(s.session, cfg.SubaccountScanLimit, s.bus, sc.Logger)
	s.switcher = subaccount.NewSwitcher(s.session, s.index, s.bus, sc.Logger)
	s.provider = NewProvider(ProviderConfig{
		Connection:        conn,
		Env:               cfg.Env,
		PerpMarketIndexes: cfg.PerpMarketIndexes,
		SpotMarketIndexes: cfg.SpotMarketIndexes,
	}, s.session, s.index, s.discovery, s.switcher, s.bus, sc.Logger)

	historyDir := ""
	if cfg.LogFile != "" {
		historyDir = filepath.Dir(cfg.LogFile)
	}
	s.history, err = monitor.NewPnLHistory(historyDir, historySamples, sc.Logger)
	if err != nil {
		log.Warn("PnL history file disabled", zap.Error(err))
		s.history, _ = monitor.NewPnLHistory("", historySamples, sc.Logger)
	}
	s.shutdown.AddFunc("pnl_history", s.history.Close)

	var sinks []monitor.Sink
	if sc.Journal && cfg.ExportDir != "" {
		s.journal, err = export.NewJournal(cfg.ExportDir, journalFlushEvery, sc.Logger)
		if err != nil {
			log.Warn("Snapshot journal disabled", zap.Error(err))
		} else {
			sinks = append(sinks, s.journal)
			s.shutdown.AddFunc("journal", s.journal.Close)
		}
	}

	var throttler *monitor.SnapshotThrottler
	if sc.UIMessageChannel != nil {
		throttler = monitor.NewSnapshotThrottler(throttleInterval, sc.UIMessageChannel, sc.Logger)
	}

	s.refresher = monitor.NewRefresher(monitor.RefresherConfig{
		Session:   s.session,
		Events:    s.bus,
		Bus:       s.bus,
		History:   s.history,
		Throttler: throttler,
		Sinks:     sinks,
		Interval:  cfg.RefreshInterval(),
		Logger:    sc.Logger,
	})

	s.shutdown.AddFunc("session", func() error {
		s.session.Reset()
		return nil
	})

	s.ctx, s.cancel = context.WithCancel(parentCtx)
	var g errgroup.Group
	s.group = &g
	s.shutdown.AddFunc("background", func() error {
		s.cancel()
		return s.group.Wait()
	})

	log.Info("Service initialized",
		zap.Strings("rpc", cfg.Endpoints()),
		zap.String("env", cfg.Env),
		zap.Int("scan_limit", s.discovery.Limit()))
	return s, nil
}

// Start запускает фоновые задачи: обновление позиций и реакцию discovery на смену сессии.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.subs = append(s.subs, s.bus.SubscribeFunc(events.SessionChanged,
		events.Typed(func(ctx context.Context, _ events.SessionChangedEvent) error {
			return s.discovery.OnSessionChange(ctx, s.session.Snapshot())
		})))

	s.group.Go(func() error {
		err := s.refresher.Run(s.ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return nil
}

// Close implements io.Closer: stops background work and releases the drift session.
func (s *Service) Close() error {
	s.mu.Lock()
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()

	return s.shutdown.Shutdown(context.Background())
}

func (s *Service) Context() context.Context { return s.ctx }
func (s *Service) Logger() *zap.Logger       { return s.logger }
func (s *Service) Config() *config.Config    { return s.cfg }
func (s *Service) Events() *events.Bus       { return s.bus }
func (s *Service) Provider() *Provider       { return s.provider }

// RPCStats returns per-node statistics, nil when the connection was injected.
func (s *Service) RPCStats() []solbc.NodeStats {
	if s.rpc == nil {
		return nil
	}
	return s.rpc.Stats()
}

// Session returns the current session state.
func (s *Service) Session() store.State { return s.session.Snapshot() }

// Connect загружает кошелёк из конфигурации и подключает его.
func (s *Service) Connect(ctx context.Context) error {
	w, err := wallet.Load(s.cfg.WalletSource())
	if err != nil {
		s.logger.Error("Failed to load wallet", zap.Error(err))
		s.notify(events.LevelError, "Wallet", err.Error())
		return err
	}
	return s.provider.Connect(ctx, w)
}

// Disconnect drops the wallet and resets the session.
func (s *Service) Disconnect(ctx context.Context) error {
	return s.provider.Disconnect(ctx)
}

func (s *Service) Subaccounts() []subaccount.Record { return s.discovery.Records() }

func (s *Service) RefreshSubaccounts(ctx context.Context) error {
	_, err := s.discovery.Refresh(ctx)
	if err != nil {
		s.notify(events.LevelError, "Subaccounts", "Failed to refresh subaccounts")
		return err
	}
	s.notify(events.LevelSuccess, "Subaccounts", "Subaccounts refreshed")
	return nil
}

// SubaccountBalances считает баланс каждого найденного субаккаунта ("$X.XX" или "N/A").
func (s *Service) SubaccountBalances(ctx context.Context) map[uint16]string {
	client := s.session.Snapshot().Client
	records := s.discovery.Records()
	out := make(map[uint16]string, len(records))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(balanceFetchLimit)
	for _, r := range records {
		g.Go(func() error {
			text := position.FetchBalance(ctx, client, r.User)
			mu.Lock()
			out[r.Index] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) ActiveSubaccount() uint16 { return s.index.Active() }

func (s *Service) Switch(ctx context.Context, idx uint16) bool {
	return s.switcher.Switch(ctx, idx)
}

func (s *Service) RefreshPositions() { s.refresher.Trigger() }

// RefreshNow fetches positions synchronously.
func (s *Service) RefreshNow(ctx context.Context) (position.Snapshot, bool) {
	return s.refresher.Refresh(ctx)
}

func (s *Service) Latest() (position.Snapshot, bool) { return s.refresher.Latest() }

func (s *Service) PnLSeries(subAccount uint16, limit int) []float64 {
	return s.history.PnLSeries(subAccount, limit)
}

// Export пишет последний снимок в export_dir.
func (s *Service) Export(format export.ExportFormat) (string, error) {
	snap, ok := s.refresher.Latest()
	if !ok {
		return "", ErrNoSnapshot
	}
	path, err := s.exporter.Export(snap, export.ExportOptions{Format: format, OutputDir: s.cfg.ExportDir})
	if err != nil {
		s.notify(events.LevelError, "Export", err.Error())
		return "", err
	}
	s.notify(events.LevelSuccess, "Export", "Saved "+path)
	return path, nil
}

func (s *Service) notify(level events.NotificationLevel, title, msg string) {
	if err := s.bus.Publish(events.Notify(level, title, msg)); err != nil {
		s.logger.Debug("Notification dropped", zap.Error(err))
	}
}
