package cmd

import (
	"context"
	"fmt"

	"github.com/Jcruzb/controlants/internal/budget"
	"github.com/Jcruzb/controlants/internal/cli"

	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Monthly budget: totals, status and every planned and fixed line",
	RunE:  runBudget,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
}

func runBudget(_ *cobra.Command, _ []string) error {
	p, err := viewPeriod()
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	progress("Cargando presupuesto de %s...", p.Label())
	coord := budget.NewCoordinator(client, p, budget.WithLogger(log))
	if err := coord.Load(context.Background()); err != nil {
		fmt.Println()
		fmt.Println(cli.RenderBanner("No se pudo cargar el presupuesto", describeError(err)))
		fmt.Println()
		return fmt.Errorf("%w: %w", errReported, err)
	}

	v := budget.PresentSnapshot(coord.View().Snapshot)

	fmt.Println()
	fmt.Println(cli.RenderTitle("PRESUPUESTO  " + p.Label()))
	fmt.Println()
	fmt.Printf("  %s\n\n", cli.RenderStatus(v.StatusText, levelFor(v.Tone)))

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Resumen", "Importe"},
		Rows: [][]string{
			{"Gastado", v.Spent},
			{"Restante", v.Remaining},
			{"Planificado", v.Planned},
		},
	}))
	fmt.Println()

	printLines("Planificado", v.PlannedLines, "Sin gastos planificados este mes")
	printLines("Fijos", v.FixedLines, "Sin pagos fijos este mes")

	if v.UnplannedText != "" {
		fmt.Printf("  %s\n\n", cli.RenderStatus(v.UnplannedText, cli.LevelWarning))
	}
	return nil
}

func printLines(title string, lines []budget.LineView, empty string) {
	if len(lines) == 0 {
		fmt.Printf("  %s\n  %s\n\n", title, cli.RenderMuted(empty))
		return
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		name := l.Icon + " " + l.Title
		if l.Fixed {
			name += " (Fijo)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", l.ID),
			name,
			l.SpentLabel,
			cli.RenderProgressBar(l.Progress, 12, levelFor(l.Style.Bar)),
			l.Hint,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"ID", "Línea", "Gastado / Plan", "Uso", "Estado"},
		Rows:    rows,
	}))
	fmt.Println()
}

func levelFor(t budget.Tone) cli.Level {
	switch t {
	case budget.ToneOver:
		return cli.LevelOver
	case budget.ToneWarning:
		return cli.LevelWarning
	default:
		return cli.LevelOK
	}
}
