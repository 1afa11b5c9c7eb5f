// Package tui provides the interactive Bubble Tea dashboard for controlants.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Backend is the slice of the API the dashboard reads and writes.
type Backend interface {
	budget.Backend
	Expenses(ctx context.Context, p model.Period) ([]model.Expense, error)
	Incomes(ctx context.Context, p model.Period) ([]model.Income, error)
	RecurringPayments(ctx context.Context) ([]model.RecurringPayment, error)
}

// Options configures NewApp.
type Options struct {
	Backend   Backend
	Period    model.Period
	Config    config.Config
	NeedSetup bool
	// Connect rebuilds the backend after the setup wizard saves a new
	// config. Nil keeps the original backend.
	Connect func(cfg config.Config) (Backend, error)
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// budgetLoadedMsg is sent when a budget fetch finishes. applied is false
// when a newer load or a period change superseded it.
type budgetLoadedMsg struct {
	applied bool
	err     error
}

// ledgerLoadedMsg carries expenses, incomes and fixed payments for a period.
type ledgerLoadedMsg struct {
	gen    int
	period model.Period
	data   ledgerData
	err    error
}

// quickAddDoneMsg is sent when a quick-add submission (post + reload) ends.
type quickAddDoneMsg struct {
	err error
}

type flashExpiredMsg struct{ seq int }

type tickMsg struct{}

// reloadMsg asks Update to start a load; Init cannot keep state changes.
type reloadMsg struct{}

type ledgerData struct {
	summary   model.MonthSummary
	expenses  []model.Expense
	recurring []model.RecurringPayment
	daily     []float64
}

// App is the root Bubble Tea model.
type App struct {
	backend Backend
	connect func(config.Config) (Backend, error)
	coord   *budget.Coordinator
	log     logrus.FieldLogger
	now     func() time.Time

	// Ledger data for the viewed period; the budget lives in coord.
	ledger        ledgerData
	ledgerLoading bool
	ledgerErr     error
	ledgerGen     int

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab cursors
	budgetCursor  int
	expenseCursor int
	fixedCursor   int

	// Overlays (huh forms)
	quick *quickAddState
	setup *setupState
	cfg   config.Config

	spinner  spinner.Model
	flash    string
	flashSeq int
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 160
	minContentHeight = 5

	tabResumen     = 0
	tabPresupuesto = 1
	tabGastos      = 2
	tabFijos       = 3

	flashDuration = 3 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	refreshInterval := time.Duration(opts.Config.TUI.RefreshIntervalSec) * time.Second
	if refreshInterval < config.MinRefreshIntervalSec*time.Second {
		refreshInterval = config.MinRefreshIntervalSec * time.Second
	}

	a := App{
		backend:         opts.Backend,
		connect:         opts.Connect,
		coord:           newCoordinator(opts.Backend, opts.Period, opts.Now, opts.Logger),
		log:             opts.Logger,
		now:             opts.Now,
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: refreshInterval,
		activeTab:       tabPresupuesto,
		spinner:         sp,
		cfg:             opts.Config,
	}
	if opts.NeedSetup {
		a.setup = newSetupState(opts.Config)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}
	if a.setup != nil {
		// The first load waits for the wizard to produce a config.
		cmds = append(cmds, a.setup.form.Init())
	} else {
		cmds = append(cmds, func() tea.Msg { return reloadMsg{} })
	}
	return tea.Batch(cmds...)
}

func newCoordinator(b Backend, p model.Period, now func() time.Time, log logrus.FieldLogger) *budget.Coordinator {
	return budget.NewCoordinator(b, p, budget.WithClock(now), budget.WithLogger(log))
}

// reload starts a budget load and a ledger load for the viewed period.
// The coordinator marks itself loading synchronously so the next View
// never shows data from another month.
func (a *App) reload() tea.Cmd {
	ticket := a.coord.BeginLoad(context.Background())
	a.lastRefresh = a.now()
	return tea.Batch(
		fetchBudgetCmd(a.coord, ticket),
		a.reloadLedger(),
	)
}

// reloadLedger refetches the ledger; only the newest response is applied.
func (a *App) reloadLedger() tea.Cmd {
	a.ledgerGen++
	a.ledgerLoading = true
	a.ledgerErr = nil
	return fetchLedgerCmd(a.backend, a.coord.Period(), a.ledgerGen)
}

// changePeriod switches every tab to p. Old data is dropped at once.
func (a *App) changePeriod(p model.Period) tea.Cmd {
	if err := a.coord.ChangePeriod(p); err != nil {
		a.log.WithError(err).Warn("rejected period change")
		return nil
	}
	a.ledger = ledgerData{}
	a.budgetCursor = 0
	a.expenseCursor = 0
	a.fixedCursor = 0
	return a.reload()
}

func (a *App) setFlash(msg string) tea.Cmd {
	a.flashSeq++
	a.flash = msg
	seq := a.flashSeq
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashExpiredMsg{seq: seq} })
}

func (a App) loading() bool {
	return a.ledgerLoading || a.coord.View().Loading
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setup != nil {
			a.setup.form = a.setup.form.WithWidth(min(msg.Width, 72))
		}
		if a.quick != nil {
			a.quick.form = a.quick.form.WithWidth(a.formWidth())
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.setup != nil {
			return a.updateSetupForm(msg)
		}
		if a.quick != nil {
			return a.updateQuickAdd(msg)
		}
		return a.updateKeys(msg)

	case budgetLoadedMsg:
		if msg.applied && msg.err != nil {
			a.log.WithError(msg.err).Warn("budget load failed")
		}
		a.clampBudgetCursor()
		return a, nil

	case ledgerLoadedMsg:
		if msg.gen != a.ledgerGen || msg.period != a.coord.Period() {
			return a, nil
		}
		a.ledgerLoading = false
		if msg.err != nil {
			a.ledgerErr = msg.err
			a.ledger = ledgerData{}
			a.log.WithError(msg.err).Warn("ledger load failed")
			return a, nil
		}
		a.ledgerErr = nil
		a.ledger = msg.data
		a.expenseCursor = min(a.expenseCursor, max(len(a.ledger.expenses)-1, 0))
		a.fixedCursor = min(a.fixedCursor, max(len(a.ledger.recurring)-1, 0))
		return a, nil

	case quickAddDoneMsg:
		return a.finishQuickAdd(msg)

	case reloadMsg:
		return a, a.reload()

	case flashExpiredMsg:
		if msg.seq == a.flashSeq {
			a.flash = ""
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.autoRefresh && a.quick == nil && a.setup == nil && !a.loading() &&
			a.now().Sub(a.lastRefresh) >= a.refreshInterval {
			cmds = append(cmds, a.reload())
		}
		return a, tea.Batch(cmds...)
	}

	// Forward everything else (cursor blinks, etc.) to an open form.
	if a.setup != nil {
		return a.updateSetupForm(msg)
	}
	if a.quick != nil && !a.quick.submitting {
		return a.forwardQuickAdd(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "h", "left":
		return a, a.changePeriod(a.coord.Period().Prev())
	case "l", "right":
		return a, a.changePeriod(a.coord.Period().Next())
	case "t":
		current := model.CurrentPeriod(a.now())
		if current == a.coord.Period() {
			return a, nil
		}
		return a, a.changePeriod(current)
	case "r":
		if a.loading() {
			return a, nil
		}
		return a, a.reload()
	case "s":
		a.setup = newSetupState(a.cfg)
		if a.width > 0 {
			a.setup.form = a.setup.form.WithWidth(min(a.width, 72))
		}
		return a, a.setup.form.Init()
	case "R":
		a.autoRefresh = !a.autoRefresh
		if a.autoRefresh {
			return a, a.setFlash("Auto-actualización activada")
		}
		return a, a.setFlash("Auto-actualización desactivada")
	case "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	switch a.activeTab {
	case tabPresupuesto:
		return a.updateBudgetKeys(key)
	case tabGastos:
		a.expenseCursor = moveCursor(key, a.expenseCursor, len(a.ledger.expenses))
	case tabFijos:
		a.fixedCursor = moveCursor(key, a.fixedCursor, len(a.ledger.recurring))
	}
	return a, nil
}

// moveCursor applies j/k/g/G style movement within n items.
func moveCursor(key string, cursor, n int) int {
	switch key {
	case "j", "down":
		cursor++
	case "k", "up":
		cursor--
	case "g", "home":
		cursor = 0
	case "G", "end":
		cursor = n - 1
	}
	return min(max(cursor, 0), max(n-1, 0))
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.showHelp || a.setup != nil || a.quick != nil {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		key := "k"
		if msg.Button == tea.MouseButtonWheelDown {
			key = "j"
		}
		switch a.activeTab {
		case tabPresupuesto:
			a.budgetCursor = moveCursor(key, a.budgetCursor, a.budgetLineCount())
		case tabGastos:
			a.expenseCursor = moveCursor(key, a.expenseCursor, len(a.ledger.expenses))
		case tabFijos:
			a.fixedCursor = moveCursor(key, a.fixedCursor, len(a.ledger.recurring))
		}
		return a, nil

	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setup.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setup.form = f
	}

	switch a.setup.form.State {
	case huh.StateCompleted:
		cfg, err := a.setup.save()
		a.setup = nil
		a.cfg = cfg
		a.autoRefresh = cfg.TUI.AutoRefresh
		a.connectBackend(cfg)
		if err != nil {
			a.log.WithError(err).Error("saving setup")
			return a, tea.Batch(a.setFlash("No se pudo guardar la configuración"), a.reload())
		}
		return a, tea.Batch(a.setFlash("Configuración guardada en "+config.Path()), a.reload())
	case huh.StateAborted:
		a.setup = nil
		return a, a.reload()
	}
	return a, cmd
}

// connectBackend swaps in a backend built from cfg, keeping the period.
func (a *App) connectBackend(cfg config.Config) {
	if a.connect == nil {
		return
	}
	b, err := a.connect(cfg)
	if err != nil {
		a.log.WithError(err).Error("connecting with new settings")
		return
	}
	a.backend = b
	a.coord = newCoordinator(b, a.coord.Period(), a.now, a.log)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setup != nil {
		return a.viewSetup()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal demasiado estrecha (%d columnas)\n\n  controlants necesita al menos %d columnas.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Focus).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Key).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navegación", [][2]string{
			{"1 2 3 4", "Ir a pestaña"},
			{"tab", "Pestaña siguiente"},
			{"h l ← →", "Mes anterior / siguiente"},
			{"t", "Mes actual"},
			{"j k", "Moverse por la lista"},
		}},
		{"Acciones", [][2]string{
			{"a + enter", "Añadir gasto a la línea"},
			{"esc", "Cerrar formulario"},
			{"r", "Recargar"},
			{"R", "Auto-actualización"},
			{"s", "Configuración"},
			{"?", "Ayuda"},
			{"q", "Salir"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Atajos de teclado"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Pulsa cualquier tecla para cerrar"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewSetup() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Focus).
		Padding(1, 2)

	title := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ Bienvenido a controlants")
	body := title + "\n\n" + a.setup.form.View()

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w, a.coord.Period().Label())

	info := components.StatusInfo{
		Refreshing:  a.loading(),
		AutoRefresh: a.autoRefresh,
		Flash:       a.flash,
	}
	if !a.lastRefresh.IsZero() {
		info.Updated = a.lastRefresh.Format("15:04")
	}
	statusBar := components.RenderStatusBar(w, info)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabResumen:
		content = a.renderOverviewTab(cw)
	case tabPresupuesto:
		content = a.renderBudgetTab(cw)
	case tabGastos:
		content = a.renderExpensesTab(cw, contentH)
	case tabFijos:
		content = a.renderRecurringTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderLoadState renders the shared loading and error states. ok is false
// when one of them was rendered instead of data.
func (a App) renderLoadState(cw int, what string, loading bool, err error) (string, bool) {
	t := theme.Active
	if err != nil {
		return components.AccentCard("", renderError("No se pudo cargar "+what, err), cw, t.Over), false
	}
	if loading {
		style := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		return components.ContentCard("", a.spinner.View()+style.Render(" Cargando "+what+"…"), cw), false
	}
	return "", true
}

func renderError(headline string, err error) string {
	t := theme.Active
	head := lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Bold(true).Render(headline)
	detail := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(errorDetail(err))
	return head + "\n" + detail
}

// errorDetail turns a load error into one line for the banner.
func errorDetail(err error) string {
	var target interface{ Unauthorized() bool }
	if errors.As(err, &target) && target.Unauthorized() {
		return err.Error() + " (¿sesión caducada? ejecuta `controlants setup`)"
	}
	return err.Error()
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func fetchBudgetCmd(c *budget.Coordinator, t budget.Ticket) tea.Cmd {
	return func() tea.Msg {
		snap, err := c.Fetch(t)
		return budgetLoadedMsg{applied: c.FinishLoad(t, snap, err), err: err}
	}
}

// fetchLedgerCmd loads expenses, incomes and fixed payments concurrently.
func fetchLedgerCmd(b Backend, p model.Period, gen int) tea.Cmd {
	return func() tea.Msg {
		var (
			expenses  []model.Expense
			incomes   []model.Income
			recurring []model.RecurringPayment
		)
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() (err error) {
			expenses, err = b.Expenses(ctx, p)
			return err
		})
		g.Go(func() (err error) {
			incomes, err = b.Incomes(ctx, p)
			return err
		})
		g.Go(func() (err error) {
			recurring, err = b.RecurringPayments(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return ledgerLoadedMsg{gen: gen, period: p, err: err}
		}

		return ledgerLoadedMsg{gen: gen, period: p, data: ledgerData{
			summary:   model.Summarize(p, expenses, incomes),
			expenses:  sortExpenses(expenses),
			recurring: recurring,
			daily:     dailyTotals(p, expenses),
		}}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
