package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/spf13/cobra"
)

var (
	flagRecName      string
	flagRecAmount    string
	flagRecDueDay    int
	flagRecCategory  string
	flagRecStartDate string
	flagRecEndDate   string
)

var recurringCmd = &cobra.Command{
	Use:     "recurring",
	Aliases: []string{"fijos"},
	Short:   "List fixed monthly payments",
	RunE:    runRecurring,
}

var recurringAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a fixed payment",
	RunE:  runRecurringAdd,
}

var recurringUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a fixed payment; unset flags keep their value",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecurringUpdate,
}

var recurringDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Deactivate a fixed payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return toggleRecurring(args[0], false)
	},
}

var recurringReactivateCmd = &cobra.Command{
	Use:   "reactivate ID",
	Short: "Reactivate a fixed payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return toggleRecurring(args[0], true)
	},
}

func init() {
	for _, c := range []*cobra.Command{recurringAddCmd, recurringUpdateCmd} {
		c.Flags().StringVar(&flagRecName, "name", "", "Payment name")
		c.Flags().StringVar(&flagRecAmount, "amount", "", "Monthly amount in euros")
		c.Flags().IntVar(&flagRecDueDay, "due-day", 0, "Day of month it is charged, 1-31")
		c.Flags().StringVar(&flagRecCategory, "category", "", "Category id")
		c.Flags().StringVar(&flagRecStartDate, "start-date", "", "YYYY-MM-DD (default: today)")
		c.Flags().StringVar(&flagRecEndDate, "end-date", "", "YYYY-MM-DD, optional")
	}
	recurringCmd.AddCommand(recurringAddCmd, recurringUpdateCmd, recurringDeactivateCmd, recurringReactivateCmd)
	rootCmd.AddCommand(recurringCmd)
}

func runRecurring(_ *cobra.Command, _ []string) error {
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	payments, err := client.RecurringPayments(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	if len(payments) == 0 {
		fmt.Printf("  %s\n\n", cli.RenderMuted("No hay pagos fijos"))
		return nil
	}
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		state := "activo"
		if !p.Active {
			state = "inactivo"
		}
		end := "-"
		if p.EndDate != nil {
			end = p.EndDate.String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Name, cli.FormatEuro(p.Amount),
			strconv.Itoa(p.DueDay), string(p.Category), p.StartDate.String(), end, state,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Pagos fijos",
		Headers: []string{"ID", "Nombre", "Importe", "Día", "Categoría", "Desde", "Hasta", "Estado"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// validateRecurring checks a full PUT/POST body.
func validateRecurring(in model.RecurringPaymentInput) error {
	var errs []error
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !in.Amount.IsPositive() {
		errs = append(errs, errors.New("amount must be greater than 0"))
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		errs = append(errs, fmt.Errorf("due day %d out of range 1-31", in.DueDay))
	}
	if in.Category == "" {
		errs = append(errs, errors.New("category is required"))
	}
	start, err := model.ParseDate(in.StartDate)
	if err != nil {
		errs = append(errs, err)
	}
	if in.EndDate != nil {
		end, err := model.ParseDate(*in.EndDate)
		if err != nil {
			errs = append(errs, err)
		} else if end.Before(start.Time) {
			errs = append(errs, errors.New("end date is before start date"))
		}
	}
	return errors.Join(errs...)
}

// applyRecurringFlags overlays the flags the user set onto in.
func applyRecurringFlags(cmd *cobra.Command, in *model.RecurringPaymentInput) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		in.Name = strings.TrimSpace(flagRecName)
	}
	if flags.Changed("amount") {
		amt, err := quickadd.ParseAmount(flagRecAmount)
		if err != nil {
			return err
		}
		in.Amount = amt
	}
	if flags.Changed("due-day") {
		in.DueDay = flagRecDueDay
	}
	if flags.Changed("category") {
		in.Category = model.Ref(strings.TrimSpace(flagRecCategory))
	}
	if flags.Changed("start-date") {
		in.StartDate = strings.TrimSpace(flagRecStartDate)
	}
	if flags.Changed("end-date") {
		end := strings.TrimSpace(flagRecEndDate)
		if end == "" {
			in.EndDate = nil
		} else {
			in.EndDate = &end
		}
	}
	return nil
}

func runRecurringAdd(cmd *cobra.Command, _ []string) error {
	in := model.RecurringPaymentInput{StartDate: time.Now().Format(model.ISODate)}
	if err := applyRecurringFlags(cmd, &in); err != nil {
		return err
	}
	if err := validateRecurring(in); err != nil {
		return err
	}

	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	p, err := client.CreateRecurringPayment(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n", cli.RenderStatus("Pago fijo creado", cli.LevelOK), p.ID, p.Name, cli.FormatEuro(p.Amount))
	return nil
}

func runRecurringUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	ctx := context.Background()

	payments, err := client.RecurringPayments(ctx)
	if err != nil {
		return err
	}
	var current *model.RecurringPayment
	for i := range payments {
		if payments[i].ID == id {
			current = &payments[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("no fixed payment with id %d", id)
	}

	in := model.RecurringPaymentInput{
		Name:      current.Name,
		Amount:    current.Amount,
		DueDay:    current.DueDay,
		Category:  current.Category,
		StartDate: current.StartDate.String(),
	}
	if current.EndDate != nil {
		end := current.EndDate.String()
		in.EndDate = &end
	}
	if err := applyRecurringFlags(cmd, &in); err != nil {
		return err
	}
	if err := validateRecurring(in); err != nil {
		return err
	}

	p, err := client.UpdateRecurringPayment(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n", cli.RenderStatus("Pago fijo actualizado", cli.LevelOK), p.ID, p.Name, cli.FormatEuro(p.Amount))
	return nil
}

func toggleRecurring(arg string, active bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	if active {
		err = client.ReactivateRecurringPayment(context.Background(), id)
	} else {
		err = client.DeactivateRecurringPayment(context.Background(), id)
	}
	if err != nil {
		return err
	}
	msg := "Pago fijo desactivado"
	if active {
		msg = "Pago fijo reactivado"
	}
	fmt.Printf("\n  %s  #%d\n\n", cli.RenderStatus(msg, cli.LevelOK), id)
	return nil
}
