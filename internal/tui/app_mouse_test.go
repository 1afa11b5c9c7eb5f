package tui

import (
	"testing"

	"github.com/Jcruzb/controlants/internal/tui/components"

	"github.com/charmbracelet/lipgloss"
)

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0

		for i := range components.Tabs {
			w := tabWidthForTest(i)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w
			if i < len(components.Tabs)-1 {
				pos++ // separator
			}
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("x past the last tab -> %d, want -1", got)
		}
	}
}

func tabWidthForTest(tabIdx int) int {
	tab := components.Tabs[tabIdx]
	// "1 Resumen" plus horizontal padding in the tab renderer.
	return lipgloss.Width(string(tab.Key)+" "+tab.Name) + 2
}
