package tui

import (
	"fmt"
	"strings"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// budgetLines returns planned lines followed by fixed ones, the order the
// cursor walks them in.
func (a App) budgetLines() []budget.LineView {
	v := budget.PresentSnapshot(a.coord.View().Snapshot)
	lines := make([]budget.LineView, 0, len(v.PlannedLines)+len(v.FixedLines))
	lines = append(lines, v.PlannedLines...)
	return append(lines, v.FixedLines...)
}

func (a App) budgetLineCount() int {
	return len(a.budgetLines())
}

func (a *App) clampBudgetCursor() {
	a.budgetCursor = min(a.budgetCursor, max(a.budgetLineCount()-1, 0))
}

func (a App) updateBudgetKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "a", "+", "enter":
		lines := a.budgetLines()
		if a.coord.View().Loading || len(lines) == 0 {
			return a, nil
		}
		line := lines[min(a.budgetCursor, len(lines)-1)]
		return a, a.openQuickAdd(line.Context)
	}
	a.budgetCursor = moveCursor(key, a.budgetCursor, a.budgetLineCount())
	return a, nil
}

func (a App) renderBudgetTab(cw int) string {
	t := theme.Active
	st := a.coord.View()

	var b strings.Builder
	b.WriteString(a.renderMonthNav(cw))
	b.WriteString("\n")

	if st.Err != nil {
		// A failed load hides the previous data entirely.
		b.WriteString(components.AccentCard("", renderError("No se pudo cargar el presupuesto", st.Err), cw, t.Over))
		return b.String()
	}
	if st.Loading || st.Snapshot == nil {
		body, _ := a.renderLoadState(cw, "el presupuesto", true, nil)
		b.WriteString(body)
		return b.String()
	}

	v := budget.PresentSnapshot(st.Snapshot)
	tone := components.ToneColor(v.Tone)

	headline := lipgloss.NewStyle().Foreground(tone).Background(t.Surface).Bold(true).Render("● " + v.StatusText)
	b.WriteString(components.AccentCard("", headline, cw, tone))
	b.WriteString("\n")

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Gastado", Value: v.Spent},
		{Label: "Restante", Value: v.Remaining, Color: tone},
		{Label: "Planificado", Value: v.Planned},
	}, cw))
	b.WriteString("\n")

	cursor := a.budgetCursor
	if a.quick != nil {
		b.WriteString(a.renderQuickAdd(cw))
		b.WriteString("\n")
		cursor = -1
	}

	b.WriteString(components.ContentCard("Planificado", a.renderLineList(v.PlannedLines, cursor, cw, "Sin gastos planificados este mes"), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Fijos", a.renderLineList(v.FixedLines, cursor-len(v.PlannedLines), cw, "Sin pagos fijos este mes"), cw))

	if v.UnplannedText != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Spend).Background(t.Background).Render("  " + v.UnplannedText))
	}
	return b.String()
}

// renderMonthNav draws "‹ octubre 2026 ›" with the navigation hint.
func (a App) renderMonthNav(cw int) string {
	t := theme.Active
	arrow := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)
	label := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Background).Bold(true)
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)

	nav := arrow.Render(" ‹ ") + label.Render(a.coord.Period().Label()) + arrow.Render(" › ")
	right := hint.Render("h/l cambia de mes · a añade gasto ")
	gap := max(cw-lipgloss.Width(nav)-lipgloss.Width(right), 1)
	return nav + lipgloss.NewStyle().Background(t.Background).Render(strings.Repeat(" ", gap)) + right
}

// renderLineList renders lines inside a card; cursor is relative to lines
// and may fall outside it.
func (a App) renderLineList(lines []budget.LineView, cursor, cw int, empty string) string {
	t := theme.Active
	if len(lines) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(empty)
	}

	innerW := components.CardInnerWidth(cw)
	barW := min(max(innerW/3, 10), 40)
	nameW := max(innerW-barW-30, 12)

	var b strings.Builder
	for i, l := range lines {
		bg := t.Surface
		marker := "  "
		if i == cursor {
			bg = t.Selected
			marker = "▸ "
		}
		nameStyle := lipgloss.NewStyle().Foreground(t.Text).Background(bg).Bold(i == cursor)
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(bg)
		hintStyle := lipgloss.NewStyle().Foreground(components.ToneColor(l.Style.Hint)).Background(bg)
		badge := ""
		if l.Fixed {
			badge = lipgloss.NewStyle().Foreground(t.Fixed).Background(bg).Render(" Fijo")
		}

		title := fmt.Sprintf("%s%s %-*s", marker, l.Icon, nameW, truncStr(l.Title, nameW))
		row := nameStyle.Render(title) + badge + muted.Render("  "+l.SpentLabel)
		row = lipgloss.PlaceHorizontal(innerW, lipgloss.Left, row, lipgloss.WithWhitespaceBackground(bg))
		b.WriteString(row)
		b.WriteString("\n")

		bar := components.ProgressBar(l.Progress, barW, components.ToneColor(l.Style.Bar), l.ProgressLabel)
		detail := muted.Render("    ") + bar + muted.Render("  ") + hintStyle.Render(l.Hint)
		b.WriteString(lipgloss.PlaceHorizontal(innerW, lipgloss.Left, detail, lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
