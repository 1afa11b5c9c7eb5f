package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/spf13/cobra"
)

var (
	flagQAPlanned   int64
	flagQARecurring int64
	flagQACategory  string
	flagQAAmount    string
	flagQADate      string
	flagQANote      string
)

var quickAddCmd = &cobra.Command{
	Use:   "quick-add",
	Short: "Record an expense against a planned or fixed budget line",
	Example: `  controlants quick-add --planned 4 --amount 12,50
  controlants quick-add --recurring 2 --amount 30 --date ayer
  controlants quick-add -m 1 --planned 4 --amount 8 --date 2024-01-15 --note "Mercado"`,
	RunE: runQuickAdd,
}

func init() {
	quickAddCmd.Flags().Int64Var(&flagQAPlanned, "planned", 0, "Planned line id")
	quickAddCmd.Flags().Int64Var(&flagQARecurring, "recurring", 0, "Fixed payment line id")
	quickAddCmd.Flags().StringVar(&flagQACategory, "category", "", "Category id (default: the line's category)")
	quickAddCmd.Flags().StringVar(&flagQAAmount, "amount", "", "Amount in euros, > 0")
	quickAddCmd.Flags().StringVar(&flagQADate, "date", "", "today|yesterday|YYYY-MM-DD (default: today if in the month)")
	quickAddCmd.Flags().StringVar(&flagQANote, "note", "", "Optional note")
	quickAddCmd.MarkFlagsMutuallyExclusive("planned", "recurring")
	quickAddCmd.MarkFlagsOneRequired("planned", "recurring")
	_ = quickAddCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(quickAddCmd)
}

// dateOption maps --date onto the form's date choice.
func dateOption(raw string, avail quickadd.Availability) (quickadd.DateOption, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return avail.DefaultOption(), ""
	case "today", "hoy":
		return quickadd.OptionToday, ""
	case "yesterday", "ayer":
		return quickadd.OptionYesterday, ""
	}
	return quickadd.OptionCustom, raw
}

func runQuickAdd(_ *cobra.Command, _ []string) error {
	p, err := viewPeriod()
	if err != nil {
		return err
	}
	now := time.Now()

	qc := quickadd.Context{CategoryID: model.Ref(flagQACategory)}
	kind := model.KindPlanned
	id := flagQAPlanned
	if flagQARecurring != 0 {
		kind = model.KindRecurring
		id = flagQARecurring
		qc.RecurringPaymentID = &id
	} else {
		qc.PlannedExpenseID = &id
	}

	form := quickadd.NewForm(p, now)
	form.Amount = flagQAAmount
	form.Note = flagQANote
	form.Option, form.CustomDate = dateOption(flagQADate, quickadd.Available(p, now))
	if form.Option != quickadd.OptionCustom {
		form.CustomDate = quickadd.DefaultCustomDate(p, now)
	}

	// Reject bad input before talking to the backend.
	if _, err := form.Resolve(p, qc, now); err != nil {
		return err
	}

	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	ctx := context.Background()
	coord := budget.NewCoordinator(client, p, budget.WithLogger(log))
	if err := coord.Load(ctx); err != nil {
		return err
	}

	line, ok := coord.View().Snapshot.FindLine(kind, id)
	if !ok {
		return fmt.Errorf("no %s line with id %d in %s", kind, id, p.Label())
	}
	full := quickadd.ContextFor(line)
	if qc.CategoryID != "" {
		full.CategoryID = qc.CategoryID
	}

	progress("Registrando gasto en %s %s...", full.Icon, full.Name)
	err = coord.SubmitQuickAdd(ctx, &form, full)
	reloadErr := errors.Is(err, budget.ErrReloadAfterSave)
	if err != nil && !reloadErr {
		if errors.Is(err, budget.ErrSuperseded) {
			return nil
		}
		return err
	}

	fmt.Printf("\n  %s\n\n", cli.RenderStatus("Gasto registrado", cli.LevelOK))
	if reloadErr {
		fmt.Fprintf(os.Stderr, "  %s\n  %s\n\n",
			cli.RenderStatus("No se pudo recargar el presupuesto", cli.LevelWarning),
			cli.RenderMuted(describeError(err)))
		return nil
	}
	if snap := coord.View().Snapshot; snap != nil {
		if refreshed, ok := snap.FindLine(kind, id); ok {
			printLines(refreshed.Title(), []budget.LineView{budget.PresentLine(refreshed)}, "")
		}
	}
	return nil
}
