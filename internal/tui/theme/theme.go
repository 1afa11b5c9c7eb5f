// Package theme defines color themes for the controlants TUI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps the dashboard's color roles to concrete colors.
// OK, Warning and Over follow the budget status of a month or line.
type Theme struct {
	Name       string
	Background lipgloss.Color // behind every card
	Surface    lipgloss.Color // card interior
	Selected   lipgloss.Color // cursor row, active tab
	Border     lipgloss.Color
	Focus      lipgloss.Color // open form, help overlay
	TextDim    lipgloss.Color // hints, empty states
	TextMuted  lipgloss.Color // labels
	Text       lipgloss.Color

	Accent       lipgloss.Color // headers, month label
	AccentBright lipgloss.Color
	Key          lipgloss.Color // key names in the help overlay

	OK      lipgloss.Color
	Warning lipgloss.Color
	Over    lipgloss.Color

	Income lipgloss.Color
	Spend  lipgloss.Color // expense amounts
	Fixed  lipgloss.Color // recurring payments
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default: warm, paper-like dark tones.
var FlexokiDark = Theme{
	Name:         "flexoki-dark",
	Background:   "#100F0F",
	Surface:      "#1C1B1A",
	Selected:     "#282726",
	Border:       "#403E3C",
	Focus:        "#3AA99F",
	TextDim:      "#575653",
	TextMuted:    "#878580",
	Text:         "#FFFCF0",
	Accent:       "#3AA99F",
	AccentBright: "#5BC8BE",
	Key:          "#24837B",
	OK:           "#879A39",
	Warning:      "#D0A215",
	Over:         "#D14D41",
	Income:       "#879A39",
	Spend:        "#DA702C",
	Fixed:        "#4385BE",
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:         "catppuccin-mocha",
	Background:   "#1E1E2E",
	Surface:      "#313244",
	Selected:     "#45475A",
	Border:       "#585B70",
	Focus:        "#89B4FA",
	TextDim:      "#6C7086",
	TextMuted:    "#A6ADC8",
	Text:         "#CDD6F4",
	Accent:       "#89B4FA",
	AccentBright: "#B4D0FB",
	Key:          "#94E2D5",
	OK:           "#A6E3A1",
	Warning:      "#F9E2AF",
	Over:         "#F38BA8",
	Income:       "#A6E3A1",
	Spend:        "#FAB387",
	Fixed:        "#B4BEFE",
}

// TokyoNight is a cool blue and purple theme.
var TokyoNight = Theme{
	Name:         "tokyo-night",
	Background:   "#1A1B26",
	Surface:      "#24283B",
	Selected:     "#343A52",
	Border:       "#565F89",
	Focus:        "#7AA2F7",
	TextDim:      "#565F89",
	TextMuted:    "#A9B1D6",
	Text:         "#C0CAF5",
	Accent:       "#7AA2F7",
	AccentBright: "#A9C1FF",
	Key:          "#7DCFFF",
	OK:           "#9ECE6A",
	Warning:      "#E0AF68",
	Over:         "#F7768E",
	Income:       "#9ECE6A",
	Spend:        "#FF9E64",
	Fixed:        "#BB9AF7",
}

// Terminal sticks to the 16 ANSI colors.
var Terminal = Theme{
	Name:         "terminal",
	Background:   "0",
	Surface:      "0",
	Selected:     "8",
	Border:       "8",
	Focus:        "6",
	TextDim:      "8",
	TextMuted:    "7",
	Text:         "15",
	Accent:       "6",
	AccentBright: "14",
	Key:          "6",
	OK:           "2",
	Warning:      "3",
	Over:         "1",
	Income:       "2",
	Spend:        "3",
	Fixed:        "4",
}

// All available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// SetActive sets the active theme by name and reports whether it was known.
// Unknown names select FlexokiDark.
func SetActive(name string) bool {
	Active = ByName(name)
	return Active.Name == name
}
