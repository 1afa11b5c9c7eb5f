package components

import (
	"strings"

	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports on its right side.
type StatusInfo struct {
	Updated     string // e.g. "09:41"
	Refreshing  bool
	AutoRefresh bool
	Flash       string // transient message, shown in place of the key hints
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	accent := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	left := base.Render(" [?]ayuda  [h/l]mes  [r]ecargar  [q]salir")
	if info.Flash != "" {
		left = lipgloss.NewStyle().Foreground(t.OK).Background(t.Surface).Bold(true).Render(" " + info.Flash)
	}

	var right strings.Builder
	switch {
	case info.Refreshing:
		right.WriteString(accent.Render("actualizando…"))
	case info.Updated != "":
		right.WriteString(base.Render("Actualizado " + info.Updated))
	}
	if info.AutoRefresh {
		right.WriteString(base.Render("  "))
		right.WriteString(accent.Render("auto"))
	}
	right.WriteString(base.Render(" "))

	padding := width - lipgloss.Width(left) - lipgloss.Width(right.String())
	if padding < 0 {
		padding = 0
	}

	return left + base.Render(strings.Repeat(" ", padding)) + right.String()
}
