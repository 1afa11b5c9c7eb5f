package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"
	"github.com/Jcruzb/controlants/internal/tui/components"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// quickAddState is the inline expense form opened from a budget line.
// values lives on the heap because App is copied on every Update.
type quickAddState struct {
	ctx        quickadd.Context
	period     model.Period
	values     *quickadd.Form
	form       *huh.Form
	submitting bool
	err        error
}

func (a *App) openQuickAdd(qc quickadd.Context) tea.Cmd {
	p := a.coord.Period()
	values := quickadd.NewForm(p, a.now())
	a.quick = &quickAddState{ctx: qc, period: p, values: &values}
	a.quick.form = a.newQuickAddForm()
	return a.quick.form.Init()
}

func (a App) formWidth() int {
	return min(components.CardInnerWidth(a.contentWidth()), 72)
}

// newQuickAddForm builds the huh form over the current values. Only the
// date options valid for the viewed month are offered.
func (a App) newQuickAddForm() *huh.Form {
	q := a.quick
	avail := quickadd.Available(q.period, a.now())
	rng := quickadd.Bounds(q.period)

	if !avail.Enabled(q.values.Option) {
		q.values.Option = avail.DefaultOption()
	}
	options := make([]huh.Option[quickadd.DateOption], 0, 3)
	for _, opt := range avail.Options() {
		options = append(options, huh.NewOption(opt.Label(), opt))
	}

	values := q.values
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(q.ctx.Icon+" "+q.ctx.Name).
				Description("Registrar gasto en "+q.period.Label()),
			huh.NewInput().
				Title("Importe (€)").
				Placeholder("0,00").
				Value(&values.Amount).
				Validate(func(s string) error {
					_, err := quickadd.ParseAmount(s)
					return err
				}),
			huh.NewSelect[quickadd.DateOption]().
				Title("Fecha").
				Options(options...).
				Value(&values.Option),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Fecha (AAAA-MM-DD)").
				Description("Entre "+rng.MinDate()+" y "+rng.MaxDate()).
				Value(&values.CustomDate).
				Validate(func(s string) error {
					_, err := quickadd.ValidateCustomDate(rng, s)
					return err
				}),
		).WithHideFunc(func() bool { return values.Option != quickadd.OptionCustom }),
		huh.NewGroup(
			huh.NewInput().
				Title("Nota").
				Placeholder("opcional").
				Value(&values.Note),
		),
	).
		WithShowHelp(false).
		WithWidth(a.formWidth())
	return form
}

func (a App) updateQuickAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.quick.submitting {
		return a, nil
	}
	if msg.String() == "esc" {
		a.quick = nil
		return a, nil
	}
	return a.forwardQuickAdd(msg)
}

func (a App) forwardQuickAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.quick.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.quick.form = f
	}

	switch a.quick.form.State {
	case huh.StateCompleted:
		a.quick.submitting = true
		a.quick.err = nil
		return a, submitQuickAddCmd(a.coord, a.quick.values, a.quick.ctx)
	case huh.StateAborted:
		a.quick = nil
		return a, nil
	}
	return a, cmd
}

func submitQuickAddCmd(c *budget.Coordinator, values *quickadd.Form, qc quickadd.Context) tea.Cmd {
	return func() tea.Msg {
		return quickAddDoneMsg{err: c.SubmitQuickAdd(context.Background(), values, qc)}
	}
}

// finishQuickAdd closes the form on success. On failure the typed values
// stay and the form is rebuilt with the error shown below it. A failed
// reload after a saved expense counts as success; the budget tab shows the
// load error.
func (a App) finishQuickAdd(msg quickAddDoneMsg) (tea.Model, tea.Cmd) {
	if a.quick == nil {
		return a, nil
	}
	if errors.Is(msg.err, budget.ErrReloadAfterSave) {
		a.log.WithError(msg.err).Warn("expense saved, budget reload failed")
		msg.err = nil
	}
	if msg.err != nil {
		a.log.WithError(msg.err).Warn("quick add failed")
		a.quick.submitting = false
		a.quick.err = msg.err
		a.quick.form = a.newQuickAddForm()
		return a, a.quick.form.Init()
	}

	a.quick = nil
	a.clampBudgetCursor()
	return a, tea.Batch(
		a.setFlash("Gasto registrado"),
		a.reloadLedger(),
	)
}

func (a App) renderQuickAdd(cw int) string {
	t := theme.Active
	q := a.quick

	var b strings.Builder
	if q.submitting {
		b.WriteString(a.spinner.View())
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(" Guardando…"))
	} else {
		b.WriteString(q.form.View())
	}
	if q.err != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Render(quickAddErrorText(q.err)))
	}
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("enter siguiente · esc cancelar")
	b.WriteString("\n")
	b.WriteString(hint)
	return components.AccentCard("Añadir gasto", b.String(), cw, t.Focus)
}

func quickAddErrorText(err error) string {
	var verr *quickadd.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return "No se pudo guardar el gasto: " + errorDetail(err)
}
