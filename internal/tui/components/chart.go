package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := maxOf(values)
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// DailyBars renders one column per day of the month, scaled to the
// busiest day, with the peak value on the y axis and day numbers below.
// It falls back to a sparkline when there is no room for bars.
func DailyBars(values []float64, width, height int, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := maxOf(values)
	if peak <= 0 {
		peak = 1
	}

	axisLabel := formatAxis(peak)
	labelW := max(lipgloss.Width(axisLabel), 4)

	n := len(values)
	barW := (width - labelW - 1) / n
	gap := 0
	if barW >= 3 {
		gap = 1
		barW--
	}
	if barW < 1 {
		return Sparkline(values, color)
	}
	barW = min(barW, 4)

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)
	eighths := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		label := ""
		if row == height {
			label = axisLabel
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", labelW, label)))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(" "))
			}
			level := v / peak * float64(height)
			switch {
			case level >= float64(row):
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case level > float64(row-1):
				idx := int((level - float64(row-1)) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(eighths[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	axisLen := n*barW + (n-1)*gap
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", labelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))
	b.WriteString("\n")

	// Day numbers every 5 days, where they fit.
	labels := []rune(strings.Repeat(" ", axisLen))
	for day := 1; day <= n; day += 5 {
		pos := (day - 1) * (barW + gap)
		s := fmt.Sprint(day)
		if pos+len(s) > axisLen {
			break
		}
		copy(labels[pos:], []rune(s))
	}
	b.WriteString(blank.Render(strings.Repeat(" ", labelW+1)))
	b.WriteString(axisStyle.Render(strings.TrimRight(string(labels), " ")))

	return b.String()
}

// formatAxis renders a euro amount compactly: 850, 1,2k, 15k.
func formatAxis(v float64) string {
	switch {
	case v >= 10_000:
		return fmt.Sprintf("%.0fk", v/1000)
	case v >= 1000:
		return strings.Replace(fmt.Sprintf("%.1fk", v/1000), ".", ",", 1)
	default:
		return fmt.Sprintf("%.0f", math.Ceil(v))
	}
}

func maxOf(values []float64) float64 {
	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	return peak
}
