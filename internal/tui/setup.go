package tui

import (
	"errors"
	"net/url"
	"strings"

	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues are the fields asked by the first-run wizard.
type SetupValues struct {
	BaseURL     string
	Session     string
	Theme       string
	AutoRefresh bool
}

// SetupValuesFrom prefills the wizard from an existing config.
func SetupValuesFrom(cfg config.Config) *SetupValues {
	return &SetupValues{
		BaseURL:     cfg.API.BaseURL,
		Session:     cfg.API.SessionCookie,
		Theme:       cfg.Appearance.Theme,
		AutoRefresh: cfg.TUI.AutoRefresh,
	}
}

// NewSetupForm builds the setup wizard over vals. The same form runs
// embedded in the dashboard and standalone from `controlants setup`.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("URL del backend").
				Description("Raíz de la API, p. ej. http://localhost:8000/api/").
				Value(&vals.BaseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("Cookie de sesión").
				Description("Valor de sessionid tras iniciar sesión en el navegador. Vacío para omitir.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.Session),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tema de color").
				Options(themes...).
				Value(&vals.Theme),
			huh.NewConfirm().
				Title("¿Actualizar el panel automáticamente?").
				Affirmative("Sí").
				Negative("No").
				Value(&vals.AutoRefresh),
		),
	)
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("introduce una URL http(s) válida")
	}
	return nil
}

// ApplySetup copies the wizard answers into cfg.
func ApplySetup(cfg *config.Config, vals *SetupValues) {
	base := strings.TrimSpace(vals.BaseURL)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	cfg.API.BaseURL = base
	if s := strings.TrimSpace(vals.Session); s != "" {
		cfg.API.SessionCookie = s
	}
	if vals.Theme != "" {
		cfg.Appearance.Theme = vals.Theme
	}
	cfg.TUI.AutoRefresh = vals.AutoRefresh
}

// setupState is the wizard embedded in the dashboard on first run.
type setupState struct {
	cfg    config.Config
	values *SetupValues
	form   *huh.Form
}

func newSetupState(cfg config.Config) *setupState {
	vals := SetupValuesFrom(cfg)
	return &setupState{cfg: cfg, values: vals, form: NewSetupForm(vals).WithShowHelp(true)}
}

// save applies the answers, switches the theme and writes the file.
func (s *setupState) save() (config.Config, error) {
	cfg := s.cfg
	ApplySetup(&cfg, s.values)
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, config.Save(cfg)
}
