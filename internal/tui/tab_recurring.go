package tui

import (
	"fmt"
	"strings"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// activeRecurringTotal sums the monthly amount of active fixed payments.
func activeRecurringTotal(payments []model.RecurringPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Active {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func (a App) renderRecurringTab(cw, h int) string {
	t := theme.Active

	var b strings.Builder
	b.WriteString(a.renderMonthNav(cw))
	b.WriteString("\n")

	if body, ok := a.renderLoadState(cw, "los pagos fijos", a.ledgerLoading, a.ledgerErr); !ok {
		b.WriteString(body)
		return b.String()
	}

	payments := a.ledger.recurring
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Pagos fijos", Value: fmt.Sprintf("%d", len(payments))},
		{Label: "Total mensual activo", Value: cli.FormatEuro(activeRecurringTotal(payments)), Color: t.Fixed},
	}, cw))
	b.WriteString("\n")

	if len(payments) == 0 {
		b.WriteString(components.ContentCard("Fijos",
			lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No hay pagos fijos"), cw))
		return b.String()
	}

	innerW := components.CardInnerWidth(cw)
	amtW := 14
	catW := 16
	nameW := max(innerW-amtW-catW-8-10-4, 10)

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rows := []string{headStyle.Render(fmt.Sprintf("%-*s %*s %-8s %-*s %s",
		nameW, "Nombre", amtW, "Importe", "Día", catW, "Categoría", "Estado"))}

	visible := max(h-10, 3)
	offset := 0
	if a.fixedCursor >= visible {
		offset = a.fixedCursor - visible + 1
	}
	end := min(offset+visible, len(payments))

	for i := offset; i < end; i++ {
		p := payments[i]
		bg := t.Surface
		if i == a.fixedCursor {
			bg = t.Selected
		}
		text := lipgloss.NewStyle().Foreground(t.Text).Background(bg)
		dim := lipgloss.NewStyle().Foreground(t.TextMuted).Background(bg)
		amt := lipgloss.NewStyle().Foreground(t.Fixed).Background(bg)
		badge := lipgloss.NewStyle().Foreground(t.OK).Background(bg).Render("activo")
		if !p.Active {
			text = text.Foreground(t.TextDim)
			amt = amt.Foreground(t.TextDim)
			badge = lipgloss.NewStyle().Foreground(t.TextDim).Background(bg).Render("inactivo")
		}
		cat := string(p.Category)
		if cat == "" {
			cat = "Sin categoría"
		}

		row := text.Render(fmt.Sprintf("%-*s ", nameW, truncStr(p.Name, nameW))) +
			amt.Render(fmt.Sprintf("%*s ", amtW, cli.FormatEuro(p.Amount))) +
			dim.Render(fmt.Sprintf("%-8s %-*s ", fmt.Sprintf("día %d", p.DueDay), catW, truncStr(cat, catW))) +
			badge
		rows = append(rows, lipgloss.PlaceHorizontal(innerW, lipgloss.Left, row, lipgloss.WithWhitespaceBackground(bg)))
	}

	b.WriteString(components.ContentCard("Fijos", strings.Join(rows, "\n"), cw))
	return b.String()
}
