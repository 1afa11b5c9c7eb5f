package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/spf13/cobra"
)

var (
	flagPlanCategory   string
	flagPlanName       string
	flagPlanType       string
	flagPlanStartMonth int
	flagPlanEndMonth   int
	flagPlanAmount     string
	flagPlanActive     bool
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List planned-expense plans",
	RunE:  runPlans,
}

var plansAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a planned-expense plan",
	RunE:  runPlansAdd,
}

var plansUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a plan; a new amount creates a new plan version",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansUpdate,
}

var plansDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Deactivate a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return togglePlan(args[0], false)
	},
}

var plansReactivateCmd = &cobra.Command{
	Use:   "reactivate ID",
	Short: "Reactivate a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return togglePlan(args[0], true)
	},
}

func init() {
	plansAddCmd.Flags().StringVar(&flagPlanCategory, "category", "", "Category id")
	plansAddCmd.Flags().StringVar(&flagPlanName, "name", "", "Plan name")
	plansAddCmd.Flags().StringVar(&flagPlanType, "type", string(model.PlanOngoing), "ONGOING or ONE_MONTH")
	plansAddCmd.Flags().IntVar(&flagPlanStartMonth, "start-month", 0, "Month id the plan starts in")
	plansAddCmd.Flags().StringVar(&flagPlanAmount, "amount", "", "Planned amount in euros")

	plansUpdateCmd.Flags().StringVar(&flagPlanName, "name", "", "New name")
	plansUpdateCmd.Flags().StringVar(&flagPlanAmount, "amount", "", "New planned amount")
	plansUpdateCmd.Flags().IntVar(&flagPlanEndMonth, "end-month", 0, "Month id the plan ends in")
	plansUpdateCmd.Flags().BoolVar(&flagPlanActive, "active", true, "Active flag")

	plansCmd.AddCommand(plansAddCmd, plansUpdateCmd, plansDeactivateCmd, plansReactivateCmd)
	rootCmd.AddCommand(plansCmd)
}

func runPlans(_ *cobra.Command, _ []string) error {
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	plans, err := client.PlannedExpensePlans(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	if len(plans) == 0 {
		fmt.Printf("  %s\n\n", cli.RenderMuted("No hay planes"))
		return nil
	}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		state := "activo"
		if !p.Active {
			state = "inactivo"
		}
		end := "-"
		if p.EndMonth != nil {
			end = strconv.Itoa(*p.EndMonth)
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Name, string(p.Category), string(p.PlanType),
			strconv.Itoa(p.StartMonth), end, cli.FormatEuro(p.PlannedAmount), state,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Planes de gasto",
		Headers: []string{"ID", "Nombre", "Categoría", "Tipo", "Inicio", "Fin", "Importe", "Estado"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// planCreate validates the add flags into a request body.
func planCreate(category, name, planType string, startMonth int, amount string) (model.PlannedExpensePlanCreate, error) {
	var errs []error
	in := model.PlannedExpensePlanCreate{
		Category:   model.Ref(strings.TrimSpace(category)),
		Name:       strings.TrimSpace(name),
		PlanType:   model.PlanType(strings.ToUpper(strings.TrimSpace(planType))),
		StartMonth: startMonth,
	}
	if in.Category == "" {
		errs = append(errs, errors.New("category is required"))
	}
	if in.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if in.PlanType != model.PlanOngoing && in.PlanType != model.PlanOneMonth {
		errs = append(errs, fmt.Errorf("plan type %q must be ONGOING or ONE_MONTH", planType))
	}
	if startMonth <= 0 {
		errs = append(errs, errors.New("start month is required"))
	}
	amt, err := quickadd.ParseAmount(amount)
	if err != nil {
		errs = append(errs, err)
	}
	in.PlannedAmount = amt
	return in, errors.Join(errs...)
}

func runPlansAdd(_ *cobra.Command, _ []string) error {
	in, err := planCreate(flagPlanCategory, flagPlanName, flagPlanType, flagPlanStartMonth, flagPlanAmount)
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	p, err := client.CreatePlannedExpensePlan(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n", cli.RenderStatus("Plan creado", cli.LevelOK), p.ID, p.Name, cli.FormatEuro(p.PlannedAmount))
	return nil
}

func runPlansUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var upd model.PlannedExpensePlanUpdate
	flags := cmd.Flags()
	if flags.Changed("name") {
		name := strings.TrimSpace(flagPlanName)
		if name == "" {
			return errors.New("name cannot be empty")
		}
		upd.Name = &name
	}
	if flags.Changed("amount") {
		amt, err := quickadd.ParseAmount(flagPlanAmount)
		if err != nil {
			return err
		}
		upd.PlannedAmount = &amt
	}
	if flags.Changed("end-month") {
		end := flagPlanEndMonth
		upd.EndMonth = &end
	}
	if flags.Changed("active") {
		active := flagPlanActive
		upd.Active = &active
	}
	if upd.IsEmpty() {
		return errors.New("nothing to update: pass --name, --amount, --end-month or --active")
	}

	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	p, err := client.UpdatePlannedExpensePlan(context.Background(), id, upd)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n", cli.RenderStatus("Plan actualizado", cli.LevelOK), p.ID, p.Name, cli.FormatEuro(p.PlannedAmount))
	return nil
}

func togglePlan(arg string, active bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	if active {
		err = client.ReactivatePlannedExpensePlan(context.Background(), id)
	} else {
		err = client.DeactivatePlannedExpensePlan(context.Background(), id)
	}
	if err != nil {
		return err
	}
	msg := "Plan desactivado"
	if active {
		msg = "Plan reactivado"
	}
	fmt.Printf("\n  %s  #%d\n\n", cli.RenderStatus(msg, cli.LevelOK), id)
	return nil
}
