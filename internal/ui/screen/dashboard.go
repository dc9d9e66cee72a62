// internal/ui/screen/dashboard.go
package screen

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/export"
	"github.com/rovshanmuradov/driftoor/internal/format"
	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/monitor"
	"github.com/rovshanmuradov/driftoor/internal/position"
	"github.com/rovshanmuradov/driftoor/internal/store"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/component"
	"github.com/rovshanmuradov/driftoor/internal/ui/router"
	"github.com/rovshanmuradov/driftoor/internal/ui/state"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

const (
	maxNotices     = 3
	noticeLifetime = 5 * time.Second
	chartSamples   = 120
	chartHeight    = 8
)

// panel – таблица дашборда, на которой стоит фокус (tab переключает).
type panel int

const (
	panelPerps panel = iota
	panelSpot
	panelOrders
	panelCount
)

func (p panel) String() string {
	switch p {
	case panelPerps:
		return "Perp positions"
	case panelSpot:
		return "Spot balances"
	case panelOrders:
		return "Open orders"
	default:
		return ""
	}
}

type notice struct {
	level   events.NotificationLevel
	title   string
	message string
	at      time.Time
}

// DashboardScreen shows the session, the active subaccount and its positions
type DashboardScreen struct {
	width  int
	height int
	keyMap ui.KeyMap

	services ui.ServiceProvider
	logger   *zap.Logger
	cache    *state.SnapshotCache

	// UI components
	header  *component.StatusHeader
	perps   *component.Table
	spot    *component.Table
	orders  *component.Table
	chart   *component.PnLChart
	gauge   *component.PnLGauge
	logs    *component.CompactLogViewer
	helpBar *component.HelpBar

	// State
	session     store.State
	snapshot    position.Snapshot
	hasSnapshot bool
	focus       panel
	showChart   bool
	refreshing  bool
	notices     []notice

	styles style.DashboardStyles
}

// NewDashboardScreen creates the main screen. logBuffer may be nil.
func NewDashboardScreen(services ui.ServiceProvider, logBuffer *logger.LogBuffer, cache *state.SnapshotCache) *DashboardScreen {
	s := &DashboardScreen{
		keyMap:   ui.DefaultKeyMap(),
		services: services,
		logger:   services.Logger().Named("dashboard"),
		cache:    cache,
		header:   component.NewStatusHeader(),
		chart:    component.NewPnLChart(80, chartHeight),
		gauge:    component.NewPnLGauge(20),
		logs:     component.NewCompactLogViewer(logBuffer),
		styles:   style.NewDashboardStyles(),
	}

	s.initializeTables()
	s.helpBar = component.NewHelpBar().
		SetKeyBindings(s.keyMap.ContextualHelp(ui.RouteDashboard)).
		SetCompact(false)

	s.syncSession()
	if snap, ok := services.Latest(); ok {
		s.applySnapshot(snap)
	}
	return s
}

// initializeTables sets up the perp, spot and orders tables
func (s *DashboardScreen) initializeTables() {
	s.perps = component.NewTable().
		AddColumn("Market", 10, lipgloss.Left).
		AddColumn("Side", 6, lipgloss.Center).
		AddColumn("Size", 12, lipgloss.Right).
		AddColumn("Notional", 13, lipgloss.Right).
		AddColumn("Entry", 12, lipgloss.Right).
		AddColumn("Price", 12, lipgloss.Right).
		AddColumn("PnL", 13, lipgloss.Right).
		AddColumn("PnL %", 9, lipgloss.Right).
		SetEmptyText("No perp positions")

	s.spot = component.NewTable().
		AddColumn("Market", 10, lipgloss.Left).
		AddColumn("Type", 9, lipgloss.Center).
		AddColumn("Balance", 16, lipgloss.Right).
		AddColumn("Cumulative deposits", 22, lipgloss.Right).
		SetEmptyText("No spot balances")

	s.orders = component.NewTable().
		AddColumn("ID", 7, lipgloss.Right).
		AddColumn("Market", 10, lipgloss.Left).
		AddColumn("Type", 10, lipgloss.Left).
		AddColumn("Side", 6, lipgloss.Center).
		AddColumn("Size", 11, lipgloss.Right).
		AddColumn("Price", 11, lipgloss.Right).
		AddColumn("Filled", 11, lipgloss.Right).
		AddColumn("Status", 8, lipgloss.Left).
		SetEmptyText("No open orders")
}

// Init is called on first show and every time the screen is revealed again
func (s *DashboardScreen) Init() tea.Cmd {
	s.syncSession()
	if snap, ok := s.services.Latest(); ok {
		s.applySnapshot(snap)
	}
	return nil
}

// Update handles screen updates
func (s *DashboardScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, s.handleKey(msg))

	case ui.TickMsg:
		s.expireNotices(time.Time(msg))
		s.header.SetRPCStatus(component.RPCStatusFromStats(s.services.RPCStats()))
		if s.showChart {
			s.updateChart()
		}

	case monitor.SnapshotMsg:
		s.receiveSnapshot(msg.Snapshot)

	case ui.RefreshResultMsg:
		s.refreshing = false
		if msg.OK {
			s.receiveSnapshot(msg.Snapshot)
		}

	case ui.DomainEventMsg:
		s.handleEvent(msg.Event)

	case ui.ErrorMsg:
		text := "unknown error"
		if msg.Error != nil {
			text = msg.Error.Error()
		}
		s.pushNotice(events.LevelError, msg.Title, text)

	case ui.SuccessMsg:
		s.pushNotice(events.LevelSuccess, msg.Title, msg.Message)

	default:
		if cmd := s.logs.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return s, tea.Batch(cmds...)
}

func (s *DashboardScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, s.keyMap.Help):
		s.helpBar.ToggleFull()

	case key.Matches(msg, s.keyMap.Connect):
		return s.connectCmd()

	case key.Matches(msg, s.keyMap.Disconnect):
		return s.disconnectCmd()

	case key.Matches(msg, s.keyMap.Refresh):
		if !s.session.IsSubscribed || s.refreshing {
			return nil
		}
		s.refreshing = true
		return s.refreshCmd()

	case key.Matches(msg, s.keyMap.Subaccounts):
		return navigate(ui.RouteSubaccounts)

	case key.Matches(msg, s.keyMap.Logs):
		return navigate(ui.RouteLogs)

	case key.Matches(msg, s.keyMap.ToggleLogs):
		s.logs.Toggle()
		s.layout()

	case key.Matches(msg, s.keyMap.Chart):
		s.showChart = !s.showChart
		if s.showChart {
			s.updateChart()
		}
		s.layout()

	case key.Matches(msg, s.keyMap.ExportJSON):
		return s.exportCmd(export.FormatJSON)

	case key.Matches(msg, s.keyMap.ExportCSV):
		return s.exportCmd(export.FormatCSV)

	case key.Matches(msg, s.keyMap.QuickSwitch):
		idx, ok := digit(msg)
		if !ok || !s.session.IsSubscribed {
			return nil
		}
		return switchCmd(s.services, idx)

	case key.Matches(msg, s.keyMap.Tab):
		s.focus = (s.focus + 1) % panelCount

	case key.Matches(msg, s.keyMap.Up):
		s.focusedTable().MoveUp()

	case key.Matches(msg, s.keyMap.Down):
		s.focusedTable().MoveDown()

	default:
		return s.logs.Update(msg)
	}
	return nil
}

func (s *DashboardScreen) focusedTable() *component.Table {
	switch s.focus {
	case panelSpot:
		return s.spot
	case panelOrders:
		return s.orders
	default:
		return s.perps
	}
}

// handleEvent reacts to events forwarded from the domain bus
func (s *DashboardScreen) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.SessionChangedEvent:
		s.syncSession()
		if e.Phase == store.PhaseIdle.String() {
			s.clearSnapshot()
			s.cache.Clear()
		}

	case events.SubaccountSwitchedEvent:
		if !e.Success {
			return
		}
		s.syncSession()
		// показываем кэш нового субаккаунта, пока не придёт свежий снимок
		if snap, ok := s.cache.Get(s.authority(), e.To); ok {
			s.applySnapshot(snap)
		} else {
			s.clearSnapshot()
			s.header.SetSubAccount(fmt.Sprintf("#%d", e.To))
		}

	case events.NotificationEvent:
		s.pushNotice(e.Level, e.Title, e.Message)
	}
}

// receiveSnapshot caches every snapshot but only shows the active subaccount
func (s *DashboardScreen) receiveSnapshot(snap position.Snapshot) {
	s.cache.Put(snap)
	if snap.Authority.String() != s.authority() || snap.SubAccount != s.services.ActiveSubaccount() {
		s.logger.Debug("Ignoring snapshot of inactive subaccount",
			zap.Uint16("sub_account", snap.SubAccount))
		return
	}
	s.applySnapshot(snap)
}

func (s *DashboardScreen) applySnapshot(snap position.Snapshot) {
	s.snapshot = snap
	s.hasSnapshot = true

	label := fmt.Sprintf("#%d", snap.SubAccount)
	if snap.Name != "" {
		label += " " + snap.Name
	}
	s.header.SetSubAccount(label)
	s.header.SetTotalPnL(snap.TotalPnL())
	s.gauge.SetValue(totalPnLPercent(snap))

	s.updatePerpTable()
	s.updateSpotTable()
	s.updateOrdersTable()
	if s.showChart {
		s.updateChart()
	}
}

func (s *DashboardScreen) clearSnapshot() {
	s.snapshot = position.Snapshot{}
	s.hasSnapshot = false
	s.header.SetSubAccount("")
	s.header.SetTotalPnL(0)
	s.gauge.SetValue(0)
	s.perps.Clear()
	s.spot.Clear()
	s.orders.Clear()
	s.chart.SetData(nil)
}

func (s *DashboardScreen) syncSession() {
	s.session = s.services.Session()
	if s.session.Wallet != nil && s.session.Wallet.Connected() {
		s.header.SetWallet(s.session.Wallet.Authority().String())
	} else {
		s.header.SetWallet("")
	}
	s.header.SetPhase(s.session.Phase.String())
}

func (s *DashboardScreen) authority() string {
	if s.session.Wallet == nil {
		return ""
	}
	return s.session.Wallet.Authority().String()
}

func (s *DashboardScreen) updatePerpTable() {
	rows := make([][]string, 0, len(s.snapshot.Perps))
	for _, p := range s.snapshot.Perps {
		rows = append(rows, []string{
			p.Market,
			strings.ToUpper(p.Direction),
			p.PositionSizeBase.Format(decimals(4)),
			p.PositionSizeQuote.Format(format.FormatUSD),
			p.EntryPrice.Format(format.FormatUSD),
			p.CurrentPrice.Format(format.FormatUSD),
			p.PnL.Format(format.FormatUSD),
			p.PnLPercent.Format(percent),
		})
	}
	s.perps.SetRows(rows)

	for i, p := range s.snapshot.Perps {
		s.perps.SetCellStyle(i, 1, style.DirectionStyle(p.Direction))
		if p.PnL.OK() {
			s.perps.SetCellStyle(i, 6, style.PnLStyle(p.PnL.Value))
			s.perps.SetCellStyle(i, 7, style.PnLStyle(p.PnL.Value))
		}
	}
}

func (s *DashboardScreen) updateSpotTable() {
	rows := make([][]string, 0, len(s.snapshot.Spot))
	for _, sp := range s.snapshot.Spot {
		kind := "deposit"
		if sp.IsBorrow {
			kind = "borrow"
		}
		rows = append(rows, []string{
			sp.Symbol,
			kind,
			sp.Balance.Format(decimals(6)),
			sp.CumulativeDeposits.Format(decimals(6)),
		})
	}
	s.spot.SetRows(rows)
}

func (s *DashboardScreen) updateOrdersTable() {
	rows := make([][]string, 0, len(s.snapshot.Orders))
	for _, o := range s.snapshot.Orders {
		rows = append(rows, []string{
			fmt.Sprintf("%d", o.OrderID),
			o.Market,
			o.OrderType,
			strings.ToUpper(o.Direction),
			fmt.Sprintf("%.3f", o.Size),
			format.FormatUSD(o.Price),
			fmt.Sprintf("%.3f", o.Filled),
			o.Status,
		})
	}
	s.orders.SetRows(rows)
	for i, o := range s.snapshot.Orders {
		s.orders.SetCellStyle(i, 3, style.DirectionStyle(o.Direction))
	}
}

func (s *DashboardScreen) updateChart() {
	series := s.services.PnLSeries(s.services.ActiveSubaccount(), chartSamples)
	s.chart.SetData(series)
}

func (s *DashboardScreen) pushNotice(level events.NotificationLevel, title, message string) {
	s.notices = append(s.notices, notice{level: level, title: title, message: message, at: time.Now()})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

func (s *DashboardScreen) expireNotices(now time.Time) {
	kept := s.notices[:0]
	for _, n := range s.notices {
		if now.Sub(n.at) < noticeLifetime {
			kept = append(kept, n)
		}
	}
	s.notices = kept
}

// Commands

func (s *DashboardScreen) connectCmd() tea.Cmd {
	services := s.services
	return func() tea.Msg {
		// об ошибке сервис уже сообщил уведомлением
		if err := services.Connect(services.Context()); err != nil {
			services.Logger().Debug("Connect failed", zap.Error(err))
		}
		return nil
	}
}

func (s *DashboardScreen) disconnectCmd() tea.Cmd {
	services := s.services
	return func() tea.Msg {
		if err := services.Disconnect(services.Context()); err != nil {
			return ui.ErrorMsg{Error: err, Title: "Disconnect"}
		}
		return nil
	}
}

func (s *DashboardScreen) refreshCmd() tea.Cmd {
	services := s.services
	return func() tea.Msg {
		snap, ok := services.RefreshNow(services.Context())
		return ui.RefreshResultMsg{Snapshot: snap, OK: ok}
	}
}

func (s *DashboardScreen) exportCmd(f export.ExportFormat) tea.Cmd {
	if _, ok := s.services.Latest(); !ok {
		return func() tea.Msg {
			return ui.ErrorMsg{Error: fmt.Errorf("no snapshot to export yet"), Title: "Export"}
		}
	}
	services := s.services
	return func() tea.Msg {
		if _, err := services.Export(f); err != nil {
			services.Logger().Debug("Export failed", zap.Error(err))
		}
		return nil
	}
}

// View renders the dashboard
func (s *DashboardScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	sections := []string{s.header.View()}

	if n := s.renderNotices(); n != "" {
		sections = append(sections, n)
	}

	if s.session.Err != nil {
		sections = append(sections, s.styles.Card.PartialWarning.Render("Session error: "+s.session.Err.Error()))
	}

	switch {
	case s.session.Wallet == nil || !s.session.Wallet.Connected():
		sections = append(sections, s.styles.Card.Muted.Render("Wallet not connected. Press 'c' to connect."))
	case !s.session.IsSubscribed:
		if s.session.IsLoading {
			sections = append(sections, s.styles.Card.Muted.Render("Connecting to Drift..."))
		}
	default:
		sections = append(sections, s.renderBody()...)
	}

	if s.logs.IsVisible() {
		sections = append(sections, s.logs.View())
	}
	sections = append(sections, s.helpBar.SetWidth(s.width).View(s.keyMap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (s *DashboardScreen) renderBody() []string {
	if !s.hasSnapshot {
		return []string{s.styles.Card.Muted.Render("Loading positions...")}
	}

	out := []string{s.renderBalanceCard()}
	if !s.snapshot.Exists {
		return out
	}

	out = append(out,
		s.renderPanel(panelPerps, s.perps),
		s.renderPanel(panelSpot, s.spot),
		s.renderPanel(panelOrders, s.orders),
	)
	if s.showChart {
		out = append(out, s.chart.View())
	}
	return out
}

// renderBalanceCard renders the subaccount summary above the tables
func (s *DashboardScreen) renderBalanceCard() string {
	st := s.styles.Card
	snap := s.snapshot

	title := fmt.Sprintf("Subaccount #%d", snap.SubAccount)
	if snap.Name != "" {
		title += " · " + snap.Name
	}

	var lines []string
	lines = append(lines, st.Title.Render(title))

	if !snap.Exists {
		lines = append(lines, st.Muted.Render(fmt.Sprintf(
			"No Drift account for subaccount %d. Deposit in the Drift app to create it.", snap.SubAccount)))
		return st.Container.Render(strings.Join(lines, "\n"))
	}

	balance := snap.BalanceText
	if balance == "" {
		balance = snap.Balance.Format(format.FormatUSD)
	}
	lines = append(lines,
		st.Label.Render("Account: ")+st.Value.Render(format.ShortenAddress(snap.UserPubkey.String())),
		st.Label.Render("USDC balance: ")+st.Value.Render(balance),
		st.Label.Render("Total PnL: ")+style.PnLStyle(snap.TotalPnL()).Render(format.FormatUSD(snap.TotalPnL()))+
			"  "+s.gauge.View(),
		st.Muted.Render("Updated "+snap.FetchedAt.Format("15:04:05")),
	)

	if snap.Partial() {
		warn := "Some values could not be loaded and are shown as N/A"
		if snap.Err != nil {
			warn += ": " + snap.Err.Error()
		}
		lines = append(lines, st.PartialWarning.Render("⚠ "+warn))
	}
	if snap.StaleErr != nil {
		lines = append(lines, st.PartialWarning.Render("⚠ Refresh failed, showing last polled data"))
	}

	return st.Container.Render(strings.Join(lines, "\n"))
}

func (s *DashboardScreen) renderPanel(p panel, t *component.Table) string {
	title := s.styles.Card.Title.Render(p.String())
	if p == s.focus {
		title = s.styles.Card.Title.Underline(true).Render(p.String() + " ◂")
	}
	t.SetSelectable(p == s.focus)
	return lipgloss.JoinVertical(lipgloss.Left, title, t.View())
}

func (s *DashboardScreen) renderNotices() string {
	if len(s.notices) == 0 {
		return ""
	}
	palette := style.DefaultPalette()
	lines := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		color := palette.Info
		icon := "ℹ"
		switch n.level {
		case events.LevelSuccess:
			color, icon = palette.Success, "✓"
		case events.LevelWarning:
			color, icon = palette.Warning, "⚠"
		case events.LevelError:
			color, icon = palette.Error, "✗"
		}
		text := n.message
		if n.title != "" {
			text = n.title + ": " + n.message
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(icon+" "+text))
	}
	return strings.Join(lines, "\n")
}

// SetSize sets the screen dimensions
func (s *DashboardScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.layout()
}

// layout распределяет высоту между таблицами, графиком и логами.
func (s *DashboardScreen) layout() {
	if s.width == 0 {
		return
	}
	s.header.SetWidth(s.width)
	s.helpBar.SetWidth(s.width)
	s.gauge.SetWidth(style.AdaptiveWidth(s.width, 20))
	s.chart.SetSize(s.width-4, chartHeight)
	s.logs.SetSize(s.width, 10)

	// header 4, card 8, help 2, заголовки панелей 3
	free := s.height - 17
	if s.showChart {
		free -= chartHeight + 3
	}
	if s.logs.IsVisible() {
		free -= s.logs.GetHeight()
	}
	perTable := free / 3
	if perTable < 5 {
		perTable = 5
	}
	s.perps.SetSize(s.width-2, perTable)
	s.spot.SetSize(s.width-2, perTable)
	s.orders.SetSize(s.width-2, perTable)
}

// helpers

func navigate(to ui.Route) tea.Cmd {
	return func() tea.Msg { return ui.RouterMsg{To: to} }
}

func switchCmd(services ui.ServiceProvider, idx uint16) tea.Cmd {
	return func() tea.Msg {
		ok := services.Switch(services.Context(), idx)
		return ui.SwitchResultMsg{Index: idx, Success: ok}
	}
}

func digit(msg tea.KeyMsg) (uint16, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	return uint16(s[0] - '0'), true
}

func decimals(n int) func(float64) string {
	return func(v float64) string {
		return fmt.Sprintf("%.*f", n, v)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// totalPnLPercent – суммарный PnL к суммарной |cost basis| открытых позиций.
func totalPnLPercent(snap position.Snapshot) float64 {
	var pnl, basis float64
	for _, p := range snap.Perps {
		if p.PnL.OK() && p.CostBasis.OK() {
			pnl += p.PnL.Value
			basis += math.Abs(p.CostBasis.Value)
		}
	}
	return format.PnLPercent(pnl, basis)
}
