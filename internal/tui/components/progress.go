package components

import (
	"math"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ToneColor maps a budget tone to the active theme's palette.
func ToneColor(tone budget.Tone) lipgloss.Color {
	t := theme.Active
	switch tone {
	case budget.ToneOver:
		return t.Over
	case budget.ToneWarning:
		return t.Warning
	default:
		return t.OK
	}
}

// ProgressBar renders a solid bar for pct in [0, 100] followed by label.
// Out-of-range input is clamped.
func ProgressBar(pct float64, width int, color lipgloss.Color, label string) string {
	t := theme.Active

	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if width < 4 {
		width = 4
	}

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	spaceStyle := lipgloss.NewStyle().Background(t.Surface)
	labelStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)

	out := bar.ViewAs(pct / 100)
	if label != "" {
		out += spaceStyle.Render(" ") + labelStyle.Render(label)
	}
	return out
}
