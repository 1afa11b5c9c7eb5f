package api

import (
	"context"

	"github.com/Jcruzb/controlants/internal/model"

	"golang.org/x/sync/errgroup"
)

// MonthSummary fetches expenses and incomes for a period concurrently and
// totals them client-side. The first failure cancels the other request.
func (c *Client) MonthSummary(ctx context.Context, p model.Period) (model.MonthSummary, error) {
	var (
		expenses []model.Expense
		incomes  []model.Income
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = c.Expenses(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		incomes, err = c.Incomes(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.MonthSummary{Period: p}, err
	}

	return model.Summarize(p, expenses, incomes), nil
}
