package components

import (
	"strings"

	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines all available tabs, in display order.
var Tabs = []Tab{
	{Name: "Resumen", Key: '1'},
	{Name: "Presupuesto", Key: '2'},
	{Name: "Gastos", Key: '3'},
	{Name: "Fijos", Key: '4'},
}

func tabLabel(tab Tab) string {
	return string(tab.Key) + " " + tab.Name
}

// TabVisualWidth is the rendered width of a tab, padding included.
// Active and inactive tabs have the same width so click targets stay put.
func TabVisualWidth(tab Tab, _ bool) int {
	return lipgloss.Width(tabLabel(tab)) + 2
}

// RenderTabBar renders the tab bar with the given active index, followed
// by right-aligned text (the viewed month).
func RenderTabBar(activeIdx, width int, right string) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Selected).
		Bold(true).
		Padding(0, 1)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)

	sepStyle := lipgloss.NewStyle().
		Foreground(t.Border).
		Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tabLabel(tab)))
		} else {
			parts = append(parts, inactiveStyle.Render(tabLabel(tab)))
		}
	}
	left := strings.Join(parts, sepStyle.Render("│"))

	rightStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)
	r := rightStyle.Render(right + " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		gap = 1
	}
	fill := lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", gap))

	return left + fill + r
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
