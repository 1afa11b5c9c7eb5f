package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

type categoryTotal struct {
	name  string
	total decimal.Decimal
	count int
}

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active

	var b strings.Builder
	b.WriteString(a.renderMonthNav(cw))
	b.WriteString("\n")

	if body, ok := a.renderLoadState(cw, "los movimientos", a.ledgerLoading, a.ledgerErr); !ok {
		b.WriteString(body)
		return b.String()
	}

	s := a.ledger.summary
	balanceColor := t.OK
	if s.Balance.IsNegative() {
		balanceColor = t.Over
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Ingresos", Value: cli.FormatEuro(s.Income), Color: t.Income},
		{Label: "Gastos", Value: cli.FormatEuro(s.Expenses), Color: t.Spend},
		{Label: "Balance", Value: cli.FormatSignedEuro(s.Balance), Color: balanceColor},
	}, cw))
	b.WriteString("\n")

	// Budget headline, when the budget for the same month is on hand.
	if st := a.coord.View(); st.Snapshot != nil && !st.Loading {
		v := budget.PresentSnapshot(st.Snapshot)
		tone := components.ToneColor(v.Tone)
		line := lipgloss.NewStyle().Foreground(tone).Background(t.Surface).Bold(true).Render("● "+v.StatusText) +
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("  restante "+v.Remaining)
		b.WriteString(components.AccentCard("", line, cw, tone))
		b.WriteString("\n")
	}

	chartW := cw
	var cards []string
	if !a.isCompactLayout() {
		widths := components.LayoutRow(cw, 2)
		chartW = widths[0]
		cards = append(cards, components.ContentCard("Categorías", a.renderTopCategories(components.CardInnerWidth(widths[1]), 8), widths[1]))
	}
	innerW := components.CardInnerWidth(chartW)
	chart := components.DailyBars(a.ledger.daily, innerW, 8, t.Accent)
	cards = append([]string{components.ContentCard("Gasto diario", chart, chartW)}, cards...)
	b.WriteString(components.CardRow(cards))

	if a.isCompactLayout() {
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Categorías", a.renderTopCategories(components.CardInnerWidth(cw), 5), cw))
	}
	return b.String()
}

func (a App) renderTopCategories(innerW, limit int) string {
	t := theme.Active
	cats := categoryTotals(a.ledger.expenses)
	if len(cats) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("Sin gastos este mes")
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.Text).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.Spend).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	nameW := max(innerW-24, 8)
	var lines []string
	for i, c := range cats {
		if i >= limit {
			break
		}
		row := nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(c.name, nameW))) +
			dimStyle.Render(fmt.Sprintf(" %3d ", c.count)) +
			valueStyle.Render(fmt.Sprintf("%14s", cli.FormatEuro(c.total)))
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// categoryTotals groups expenses by category, largest first.
func categoryTotals(expenses []model.Expense) []categoryTotal {
	idx := make(map[string]int)
	var out []categoryTotal
	for _, e := range expenses {
		name := e.DisplayCategory()
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, categoryTotal{name: name})
		}
		out[i].total = out[i].total.Add(e.Amount)
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].total.GreaterThan(out[j].total)
	})
	return out
}

// dailyTotals returns spend per day of p, index 0 being the 1st.
// Expenses dated outside p are ignored.
func dailyTotals(p model.Period, expenses []model.Expense) []float64 {
	days := make([]float64, p.DaysIn())
	for _, e := range expenses {
		if !p.Contains(e.Date.Time) || e.Date.IsZero() {
			continue
		}
		days[e.Date.Day()-1] += e.Amount.InexactFloat64()
	}
	return days
}

// sortExpenses orders newest first, then by id descending.
func sortExpenses(expenses []model.Expense) []model.Expense {
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date.Time) {
			return expenses[i].Date.After(expenses[j].Date.Time)
		}
		return expenses[i].ID > expenses[j].ID
	})
	return expenses
}
