package model

import "github.com/shopspring/decimal"

// DefaultCategories are offered by the freestanding expense form when the
// backend category list is unavailable.
var DefaultCategories = []string{
	"Alimentación",
	"Salidas",
	"Transporte",
	"Vivienda",
	"Servicios",
	"Ocio",
	"Salud",
	"Educación",
	"Inversiones",
	"Otros",
}

// Expense is a recorded outflow as listed by /expenses/.
type Expense struct {
	ID               int64           `json:"id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Category         Ref             `json:"category"`
	Date             Date            `json:"date"`
	PlannedExpense   *int64          `json:"planned_expense,omitempty"`
	RecurringPayment *int64          `json:"recurring_payment,omitempty"`
	IsRecurring      bool            `json:"is_recurring,omitempty"`
}

// DisplayDescription falls back to "Gasto" for blank descriptions.
func (e Expense) DisplayDescription() string {
	if e.Description == "" {
		return "Gasto"
	}
	return e.Description
}

// DisplayCategory falls back to "Sin categoría".
func (e Expense) DisplayCategory() string {
	if e.Category == "" {
		return "Sin categoría"
	}
	return string(e.Category)
}

// ExpenseCreate is the body of POST /expenses/.
type ExpenseCreate struct {
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Category         Ref             `json:"category"`
	Date             string          `json:"date"`
	PlannedExpense   *int64          `json:"planned_expense"`
	RecurringPayment *int64          `json:"recurring_payment"`
	IsRecurring      bool            `json:"is_recurring,omitempty"`
}

// Income is a recorded inflow as listed by /incomes/.
type Income struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
}

// Category is a spending category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// CategoryCreate is the body of POST /categories/.
type CategoryCreate struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// RecurringPayment is a fixed monthly payment. DELETE deactivates it.
type RecurringPayment struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	DueDay    int             `json:"due_day"`
	Category  Ref             `json:"category"`
	StartDate Date            `json:"start_date"`
	EndDate   *Date           `json:"end_date"`
	Active    bool            `json:"active"`
}

// RecurringPaymentInput is the body of POST and PUT /recurring-payments/.
type RecurringPaymentInput struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	DueDay    int             `json:"due_day"`
	Category  Ref             `json:"category"`
	StartDate string          `json:"start_date"`
	EndDate   *string         `json:"end_date"`
}

// PlanType says whether a planned-expense plan repeats.
type PlanType string

const (
	PlanOngoing  PlanType = "ONGOING"
	PlanOneMonth PlanType = "ONE_MONTH"
)

// PlannedExpensePlan is a versioned budget allocation for a category.
type PlannedExpensePlan struct {
	ID            int64           `json:"id"`
	Category      Ref             `json:"category"`
	Name          string          `json:"name"`
	PlanType      PlanType        `json:"plan_type"`
	StartMonth    int             `json:"start_month"`
	EndMonth      *int            `json:"end_month"`
	PlannedAmount decimal.Decimal `json:"planned_amount"`
	Active        bool            `json:"active"`
}

// PlannedExpensePlanCreate is the body of POST /planned-expense-plans/.
type PlannedExpensePlanCreate struct {
	Category      Ref             `json:"category"`
	Name          string          `json:"name"`
	PlanType      PlanType        `json:"plan_type"`
	StartMonth    int             `json:"start_month"`
	PlannedAmount decimal.Decimal `json:"planned_amount"`
}

// PlannedExpensePlanUpdate is the PATCH body. A new PlannedAmount creates a
// new plan version server-side.
type PlannedExpensePlanUpdate struct {
	Name          *string          `json:"name,omitempty"`
	Active        *bool            `json:"active,omitempty"`
	EndMonth      *int             `json:"end_month,omitempty"`
	PlannedAmount *decimal.Decimal `json:"planned_amount,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u PlannedExpensePlanUpdate) IsEmpty() bool {
	return u.Name == nil && u.Active == nil && u.EndMonth == nil && u.PlannedAmount == nil
}

// MonthSummary is the dashboard view: income against spend for one period.
type MonthSummary struct {
	Period   Period
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// Summarize totals expenses and incomes for a period.
func Summarize(p Period, expenses []Expense, incomes []Income) MonthSummary {
	s := MonthSummary{Period: p, Expenses: SumExpenses(expenses)}
	for _, in := range incomes {
		s.Income = s.Income.Add(in.Amount)
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}

// SumExpenses adds up expense amounts.
func SumExpenses(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
