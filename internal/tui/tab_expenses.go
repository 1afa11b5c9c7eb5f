package tui

import (
	"fmt"
	"strings"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderExpensesTab(cw, h int) string {
	t := theme.Active

	var b strings.Builder
	b.WriteString(a.renderMonthNav(cw))
	b.WriteString("\n")

	if body, ok := a.renderLoadState(cw, "los gastos", a.ledgerLoading, a.ledgerErr); !ok {
		b.WriteString(body)
		return b.String()
	}

	expenses := a.ledger.expenses
	innerW := components.CardInnerWidth(cw)
	title := fmt.Sprintf("Gastos · %d · %s", len(expenses), cli.FormatEuro(model.SumExpenses(expenses)))
	if len(expenses) == 0 {
		b.WriteString(components.ContentCard(title,
			lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("Sin gastos este mes"), cw))
		return b.String()
	}

	// Columns: date(10) weekday(4) description(flex) category(16) amount(14)
	catW := 16
	amtW := 14
	descW := max(innerW-10-4-catW-amtW-6, 10)

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	var rows []string
	rows = append(rows, headStyle.Render(fmt.Sprintf("%-10s %-4s %-*s %-*s %*s",
		"Fecha", "Día", descW, "Descripción", catW, "Categoría", amtW, "Importe")))

	// Visible window: card borders, title, header and the nav line.
	visible := max(h-6, 3)
	offset := 0
	if a.expenseCursor >= visible {
		offset = a.expenseCursor - visible + 1
	}
	end := min(offset+visible, len(expenses))

	for i := offset; i < end; i++ {
		e := expenses[i]
		bg := t.Surface
		if i == a.expenseCursor {
			bg = t.Selected
		}
		dim := lipgloss.NewStyle().Foreground(t.TextMuted).Background(bg)
		text := lipgloss.NewStyle().Foreground(t.Text).Background(bg)
		amt := lipgloss.NewStyle().Foreground(t.Spend).Background(bg)
		if e.IsRecurring || e.RecurringPayment != nil {
			amt = amt.Foreground(t.Fixed)
		}

		row := dim.Render(fmt.Sprintf("%-10s %-4s ", e.Date.String(), cli.FormatWeekday(int(e.Date.Weekday())))) +
			text.Render(fmt.Sprintf("%-*s ", descW, truncStr(e.DisplayDescription(), descW))) +
			dim.Render(fmt.Sprintf("%-*s ", catW, truncStr(e.DisplayCategory(), catW))) +
			amt.Render(fmt.Sprintf("%*s", amtW, cli.FormatEuro(e.Amount)))
		rows = append(rows, lipgloss.PlaceHorizontal(innerW, lipgloss.Left, row, lipgloss.WithWhitespaceBackground(bg)))
	}

	b.WriteString(components.ContentCard(title, strings.Join(rows, "\n"), cw))
	return b.String()
}
