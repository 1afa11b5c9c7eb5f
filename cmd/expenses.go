package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/spf13/cobra"
)

var (
	flagExpAmount      string
	flagExpCategory    string
	flagExpDescription string
	flagExpDate        string
)

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "List the expenses of the month",
	RunE:  runExpenses,
}

var expensesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense outside the budget lines",
	RunE:  runExpensesAdd,
}

var incomesCmd = &cobra.Command{
	Use:   "incomes",
	Short: "List the incomes of the month",
	RunE:  runIncomes,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Income against spend for the month",
	RunE:  runDashboard,
}

func init() {
	expensesAddCmd.Flags().StringVar(&flagExpAmount, "amount", "", "Amount in euros, > 0")
	expensesAddCmd.Flags().StringVar(&flagExpCategory, "category", "", "Category id or name")
	expensesAddCmd.Flags().StringVar(&flagExpDescription, "description", "", "Description")
	expensesAddCmd.Flags().StringVar(&flagExpDate, "date", "", "YYYY-MM-DD (default: today)")
	_ = expensesAddCmd.MarkFlagRequired("amount")
	_ = expensesAddCmd.MarkFlagRequired("category")

	expensesCmd.AddCommand(expensesAddCmd)
	rootCmd.AddCommand(expensesCmd)
	rootCmd.AddCommand(incomesCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func runExpenses(_ *cobra.Command, _ []string) error {
	p, err := viewPeriod()
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	progress("Cargando gastos de %s...", p.Label())
	expenses, err := client.Expenses(context.Background(), p)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("GASTOS  " + p.Label()))
	fmt.Println()
	if len(expenses) == 0 {
		fmt.Printf("  %s\n\n", cli.RenderMuted("Sin gastos este mes"))
		return nil
	}

	rows := make([][]string, 0, len(expenses)+2)
	for _, e := range expenses {
		rows = append(rows, []string{
			e.Date.String(),
			cli.FormatWeekday(int(e.Date.Weekday())),
			e.DisplayDescription(),
			e.DisplayCategory(),
			cli.FormatEuro(e.Amount),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", "", fmt.Sprintf("%d gastos", len(expenses)), cli.FormatEuro(model.SumExpenses(expenses))})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Fecha", "Día", "Descripción", "Categoría", "Importe"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// expenseInput validates the freestanding expense form. Neither planned
// nor recurring ids are sent.
func expenseInput(amount, category, description, date string, now time.Time) (model.ExpenseCreate, error) {
	amt, err := quickadd.ParseAmount(amount)
	if err != nil {
		return model.ExpenseCreate{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return model.ExpenseCreate{}, errors.New("category is required")
	}
	if strings.TrimSpace(date) == "" {
		date = now.Format(model.ISODate)
	}
	d, err := model.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return model.ExpenseCreate{}, err
	}
	return model.ExpenseCreate{
		Description: strings.TrimSpace(description),
		Amount:      amt,
		Category:    model.Ref(category),
		Date:        d.String(),
	}, nil
}

func runExpensesAdd(_ *cobra.Command, _ []string) error {
	in, err := expenseInput(flagExpAmount, flagExpCategory, flagExpDescription, flagExpDate, time.Now())
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	created, err := client.CreateExpense(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n",
		cli.RenderStatus("Gasto registrado", cli.LevelOK),
		created.ID, in.Date, cli.FormatEuro(in.Amount))
	return nil
}

func runIncomes(_ *cobra.Command, _ []string) error {
	p, err := viewPeriod()
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	progress("Cargando ingresos de %s...", p.Label())
	incomes, err := client.Incomes(context.Background(), p)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("INGRESOS  " + p.Label()))
	fmt.Println()
	if len(incomes) == 0 {
		fmt.Printf("  %s\n\n", cli.RenderMuted("Sin ingresos este mes"))
		return nil
	}

	summary := model.Summarize(p, nil, incomes)
	rows := make([][]string, 0, len(incomes)+2)
	for _, in := range incomes {
		rows = append(rows, []string{in.Date.String(), in.Description, cli.FormatEuro(in.Amount)})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", cli.FormatEuro(summary.Income)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Fecha", "Descripción", "Importe"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runDashboard(_ *cobra.Command, _ []string) error {
	p, err := viewPeriod()
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	progress("Cargando resumen de %s...", p.Label())
	s, err := client.MonthSummary(context.Background(), p)
	if err != nil {
		return err
	}

	level := cli.LevelOK
	if s.Balance.IsNegative() {
		level = cli.LevelOver
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RESUMEN  " + p.Label()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Concepto", "Importe"},
		Rows: [][]string{
			{"Ingresos", cli.FormatEuro(s.Income)},
			{"Gastos", cli.FormatEuro(s.Expenses)},
			{"---"},
			{"Balance", cli.FormatSignedEuro(s.Balance)},
		},
	}))
	fmt.Println()
	if level == cli.LevelOver {
		fmt.Printf("  %s\n\n", cli.RenderStatus("Gastas más de lo que ingresas este mes", level))
	}
	return nil
}
