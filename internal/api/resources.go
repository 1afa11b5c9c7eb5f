package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Jcruzb/controlants/internal/model"
)

const (
	pathBudget     = "budget/"
	pathExpenses   = "expenses/"
	pathIncomes    = "incomes/"
	pathCategories = "categories/"
	pathRecurring  = "recurring-payments/"
	pathPlans      = "planned-expense-plans/"
)

func periodQuery(p model.Period) url.Values {
	q := url.Values{}
	q.Set("year", strconv.Itoa(p.Year))
	q.Set("month", strconv.Itoa(int(p.Month)))
	return q
}

// Budget fetches the server-computed snapshot for a period.
func (c *Client) Budget(ctx context.Context, p model.Period) (*model.BudgetSnapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var snap model.BudgetSnapshot
	if err := c.Get(ctx, pathBudget, periodQuery(p), &snap); err != nil {
		return nil, err
	}
	snap.Normalize()
	return &snap, nil
}

// Expenses lists the expenses recorded in a period.
func (c *Client) Expenses(ctx context.Context, p model.Period) ([]model.Expense, error) {
	var out []model.Expense
	if err := c.Get(ctx, pathExpenses, periodQuery(p), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExpense records an expense.
func (c *Client) CreateExpense(ctx context.Context, in model.ExpenseCreate) (*model.Expense, error) {
	var out model.Expense
	if err := c.Post(ctx, pathExpenses, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Incomes lists the incomes recorded in a period.
func (c *Client) Incomes(ctx context.Context, p model.Period) ([]model.Income, error) {
	var out []model.Income
	if err := c.Get(ctx, pathIncomes, periodQuery(p), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.Get(ctx, pathCategories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, in model.CategoryCreate) (*model.Category, error) {
	var out model.Category
	if err := c.Post(ctx, pathCategories, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecurringPayments lists active and inactive recurring payments.
func (c *Client) RecurringPayments(ctx context.Context) ([]model.RecurringPayment, error) {
	var out []model.RecurringPayment
	if err := c.Get(ctx, pathRecurring, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecurringPayment adds a recurring payment.
func (c *Client) CreateRecurringPayment(ctx context.Context, in model.RecurringPaymentInput) (*model.RecurringPayment, error) {
	var out model.RecurringPayment
	if err := c.Post(ctx, pathRecurring, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecurringPayment replaces a recurring payment.
func (c *Client) UpdateRecurringPayment(ctx context.Context, id int64, in model.RecurringPaymentInput) (*model.RecurringPayment, error) {
	var out model.RecurringPayment
	if err := c.Put(ctx, itemPath(pathRecurring, id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivateRecurringPayment soft-deletes a recurring payment.
func (c *Client) DeactivateRecurringPayment(ctx context.Context, id int64) error {
	return c.Delete(ctx, itemPath(pathRecurring, id), nil)
}

// ReactivateRecurringPayment restores a deactivated recurring payment.
func (c *Client) ReactivateRecurringPayment(ctx context.Context, id int64) error {
	return c.Post(ctx, actionPath(pathRecurring, id, "reactivate"), nil, nil)
}

// PlannedExpensePlans lists planned-expense plans.
func (c *Client) PlannedExpensePlans(ctx context.Context) ([]model.PlannedExpensePlan, error) {
	var out []model.PlannedExpensePlan
	if err := c.Get(ctx, pathPlans, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlannedExpensePlan adds a plan; the backend creates its first version.
func (c *Client) CreatePlannedExpensePlan(ctx context.Context, in model.PlannedExpensePlanCreate) (*model.PlannedExpensePlan, error) {
	var out model.PlannedExpensePlan
	if err := c.Post(ctx, pathPlans, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePlannedExpensePlan patches a plan.
func (c *Client) UpdatePlannedExpensePlan(ctx context.Context, id int64, in model.PlannedExpensePlanUpdate) (*model.PlannedExpensePlan, error) {
	var out model.PlannedExpensePlan
	if err := c.Patch(ctx, itemPath(pathPlans, id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivatePlannedExpensePlan stops a plan from applying to future months.
func (c *Client) DeactivatePlannedExpensePlan(ctx context.Context, id int64) error {
	return c.Post(ctx, actionPath(pathPlans, id, "deactivate"), nil, nil)
}

// ReactivatePlannedExpensePlan resumes a deactivated plan.
func (c *Client) ReactivatePlannedExpensePlan(ctx context.Context, id int64) error {
	return c.Post(ctx, actionPath(pathPlans, id, "reactivate"), nil, nil)
}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}

func actionPath(collection string, id int64, action string) string {
	return fmt.Sprintf("%s%d/%s/", collection, id, action)
}
