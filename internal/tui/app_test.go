package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

type fakeBackend struct {
	mu        sync.Mutex
	budgetErr error
	createErr error
	created   []model.ExpenseCreate
	expenses  []model.Expense
}

func (f *fakeBackend) Budget(_ context.Context, p model.Period) (*model.BudgetSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budgetErr != nil {
		return nil, f.budgetErr
	}
	snap := &model.BudgetSnapshot{
		Status:          model.StatusOK,
		TotalPlanned:    decimal.NewFromInt(300),
		TotalSpent:      decimal.NewFromInt(90),
		RemainingAmount: decimal.NewFromInt(210),
		Planned: []model.BudgetLine{{
			ID:              7,
			Category:        "Alimentación",
			PlannedAmount:   decimal.NewFromInt(200),
			SpentAmount:     decimal.NewFromInt(60),
			RemainingAmount: decimal.NewFromInt(140),
			PercentageUsed:  decimal.NewFromInt(30),
			Status:          model.StatusOK,
		}},
		Recurring: []model.BudgetLine{{
			ID:              3,
			Name:            "Gimnasio",
			PlannedAmount:   decimal.NewFromInt(100),
			SpentAmount:     decimal.NewFromInt(30),
			RemainingAmount: decimal.NewFromInt(70),
			PercentageUsed:  decimal.NewFromInt(30),
			Status:          model.StatusOK,
		}},
	}
	snap.Normalize()
	return snap, nil
}

func (f *fakeBackend) CreateExpense(_ context.Context, in model.ExpenseCreate) (*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &model.Expense{ID: int64(len(f.created))}, nil
}

func (f *fakeBackend) Expenses(context.Context, model.Period) ([]model.Expense, error) {
	return f.expenses, nil
}

func (f *fakeBackend) Incomes(context.Context, model.Period) ([]model.Income, error) {
	return nil, nil
}

func (f *fakeBackend) RecurringPayments(context.Context) ([]model.RecurringPayment, error) {
	return nil, nil
}

var testPeriod = model.Period{Year: 2024, Month: time.February}

func newTestApp(t *testing.T, fb *fakeBackend) App {
	t.Helper()
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.Local)
	a := NewApp(Options{
		Backend: fb,
		Period:  testPeriod,
		Config:  config.DefaultConfig(),
		Now:     func() time.Time { return now },
	})
	return update(t, a, tea.WindowSizeMsg{Width: 130, Height: 50})
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return app
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBudgetTabShowsLoadedSnapshot(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	if err := a.coord.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	view := a.View()
	for _, want := range []string{"Vas bien este mes", "Alimentación", "Gimnasio", "210,00 €"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestChangePeriodClearsSnapshotImmediately(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	_ = a.coord.Load(context.Background())

	a = update(t, a, keyPress("l"))
	st := a.coord.View()
	if st.Period != testPeriod.Next() {
		t.Fatalf("period = %v, want %v", st.Period, testPeriod.Next())
	}
	if st.Snapshot != nil || !st.Loading {
		t.Fatalf("old month still shown: %+v", st)
	}
	if view := a.View(); strings.Contains(view, "Alimentación") {
		t.Fatalf("previous month's lines rendered after switch:\n%s", view)
	}
}

func TestLoadErrorShowsBannerWithoutData(t *testing.T) {
	fb := &fakeBackend{}
	a := newTestApp(t, fb)
	_ = a.coord.Load(context.Background())

	fb.budgetErr = errors.New("conexión rechazada")
	_ = a.coord.Load(context.Background())

	view := a.View()
	if !strings.Contains(view, "No se pudo cargar el presupuesto") {
		t.Fatalf("error banner missing:\n%s", view)
	}
	if strings.Contains(view, "Vas bien este mes") {
		t.Fatalf("stale snapshot rendered next to the error:\n%s", view)
	}
}

func TestQuickAddOpensOnSelectedLine(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	_ = a.coord.Load(context.Background())

	a = update(t, a, keyPress("j")) // move to the fixed line
	a = update(t, a, keyPress("a"))
	if a.quick == nil {
		t.Fatal("quick add did not open")
	}
	qc := a.quick.ctx
	if qc.RecurringPaymentID == nil || *qc.RecurringPaymentID != 3 || qc.PlannedExpenseID != nil {
		t.Fatalf("context = %+v, want recurring line 3", qc)
	}

	a = update(t, a, keyPress("h"))
	if a.coord.Period() != testPeriod {
		t.Fatal("period changed while the form was open")
	}

	a = update(t, a, keyPress("esc"))
	if a.quick != nil {
		t.Fatal("esc did not close the form")
	}
}

func TestSettingsKeyOpensSetupForm(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	a = update(t, a, keyPress("s"))
	if a.setup == nil {
		t.Fatal("setup form did not open")
	}
	if a.setup.values.BaseURL != a.cfg.API.BaseURL {
		t.Fatalf("setup base url = %q, want %q", a.setup.values.BaseURL, a.cfg.API.BaseURL)
	}

	a = update(t, a, keyPress("l"))
	if a.coord.Period() != testPeriod {
		t.Fatal("period changed while the setup form was open")
	}
}

func TestQuickAddFailureKeepsValues(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	_ = a.coord.Load(context.Background())
	a = update(t, a, keyPress("a"))
	a.quick.values.Amount = "12,5"
	a.quick.submitting = true

	a = update(t, a, quickAddDoneMsg{err: errors.New("400 bad request")})
	if a.quick == nil {
		t.Fatal("form closed after a failed submit")
	}
	if a.quick.values.Amount != "12,5" || a.quick.submitting || a.quick.err == nil {
		t.Fatalf("quick state = %+v", a.quick)
	}
	if !strings.Contains(a.View(), "No se pudo guardar el gasto") {
		t.Fatal("submit error not shown under the form")
	}

	a = update(t, a, quickAddDoneMsg{})
	if a.quick != nil || a.flash != "Gasto registrado" {
		t.Fatalf("success did not close the form: quick=%v flash=%q", a.quick, a.flash)
	}
}

func TestQuickAddSavedButReloadFailedClosesForm(t *testing.T) {
	fb := &fakeBackend{}
	a := newTestApp(t, fb)
	_ = a.coord.Load(context.Background())
	a = update(t, a, keyPress("a"))
	a.quick.values.Amount = "9"
	a.quick.submitting = true

	fb.budgetErr = errors.New("502 bad gateway")
	msg := submitQuickAddCmd(a.coord, a.quick.values, a.quick.ctx)()
	a = update(t, a, msg)

	if len(fb.created) != 1 {
		t.Fatalf("created = %d, want 1", len(fb.created))
	}
	if a.quick != nil {
		t.Fatal("form stayed open although the expense was saved")
	}
	if a.flash != "Gasto registrado" {
		t.Fatalf("flash = %q", a.flash)
	}
	view := a.View()
	if strings.Contains(view, "No se pudo guardar") {
		t.Fatal("saved expense reported as a save failure")
	}
	if !strings.Contains(view, "No se pudo cargar el presupuesto") {
		t.Fatal("reload error not shown on the budget tab")
	}
}

func TestStaleLedgerResponseIgnored(t *testing.T) {
	a := newTestApp(t, &fakeBackend{})
	a.ledgerGen = 2
	a.ledgerLoading = true

	stale := ledgerLoadedMsg{gen: 1, period: testPeriod, data: ledgerData{expenses: []model.Expense{{ID: 1}}}}
	a = update(t, a, stale)
	if len(a.ledger.expenses) != 0 || !a.ledgerLoading {
		t.Fatal("stale ledger response applied")
	}

	other := ledgerLoadedMsg{gen: 2, period: testPeriod.Next()}
	a = update(t, a, other)
	if !a.ledgerLoading {
		t.Fatal("ledger for another month applied")
	}

	a = update(t, a, ledgerLoadedMsg{gen: 2, period: testPeriod, data: ledgerData{expenses: []model.Expense{{ID: 9}}}})
	if a.ledgerLoading || len(a.ledger.expenses) != 1 {
		t.Fatalf("current ledger not applied: loading=%v n=%d", a.ledgerLoading, len(a.ledger.expenses))
	}
}

func TestDailyTotalsIgnoresOtherMonths(t *testing.T) {
	day := func(s string) model.Date {
		d, err := model.ParseDate(s)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	expenses := []model.Expense{
		{Date: day("2024-02-01"), Amount: decimal.NewFromInt(10)},
		{Date: day("2024-02-01"), Amount: decimal.NewFromInt(5)},
		{Date: day("2024-02-29"), Amount: decimal.NewFromInt(7)},
		{Date: day("2024-03-01"), Amount: decimal.NewFromInt(99)},
	}
	got := dailyTotals(testPeriod, expenses)
	if len(got) != 29 {
		t.Fatalf("len = %d, want 29", len(got))
	}
	if got[0] != 15 || got[28] != 7 {
		t.Fatalf("totals = %v", got)
	}
}

func TestCategoryTotalsSortedDescending(t *testing.T) {
	cats := categoryTotals([]model.Expense{
		{Category: "Ocio", Amount: decimal.NewFromInt(10)},
		{Category: "Vivienda", Amount: decimal.NewFromInt(500)},
		{Category: "Ocio", Amount: decimal.NewFromInt(15)},
		{Amount: decimal.NewFromInt(1)},
	})
	if len(cats) != 3 || cats[0].name != "Vivienda" || cats[1].name != "Ocio" || cats[1].count != 2 {
		t.Fatalf("cats = %+v", cats)
	}
	if cats[2].name != "Sin categoría" {
		t.Fatalf("blank category = %q", cats[2].name)
	}
}

func TestApplySetup(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.SessionCookie = "old"
	ApplySetup(&cfg, &SetupValues{
		BaseURL:     " https://gastos.example.com/api ",
		Session:     "",
		Theme:       "tokyo-night",
		AutoRefresh: false,
	})
	if cfg.API.BaseURL != "https://gastos.example.com/api/" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.SessionCookie != "old" {
		t.Fatal("blank session overwrote the stored cookie")
	}
	if cfg.Appearance.Theme != "tokyo-night" || cfg.TUI.AutoRefresh {
		t.Fatalf("cfg = %+v", cfg)
	}
	if validateBaseURL("ftp://x") == nil || validateBaseURL("http://localhost:8000/api/") != nil {
		t.Fatal("validateBaseURL")
	}
}

func TestThemeNamesMatchConfig(t *testing.T) {
	names := theme.Names()
	if strings.Join(names, ",") != strings.Join(config.Themes, ",") {
		t.Fatalf("theme names %v differ from accepted config themes %v", names, config.Themes)
	}
	for _, name := range names {
		if !theme.SetActive(name) {
			t.Fatalf("SetActive(%q) = false", name)
		}
	}
	if theme.SetActive("solarized") || theme.Active.Name != "flexoki-dark" {
		t.Fatal("unknown theme did not fall back to flexoki-dark")
	}
}
