// Package budget owns the monthly budget view: which period is on screen,
// the snapshot for it, and quick-add submissions against it.
package budget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/sirupsen/logrus"
)

// ErrSuperseded is returned by Load when a newer load or a period change
// overtook it. Its result was discarded.
var ErrSuperseded = errors.New("budget: load superseded by a newer request")

// ErrReloadAfterSave wraps a reload failure that followed a recorded
// expense. The expense is saved; only the refreshed snapshot is missing.
var ErrReloadAfterSave = errors.New("budget: expense saved but reload failed")

// Backend is the slice of the API the coordinator needs.
type Backend interface {
	Budget(ctx context.Context, p model.Period) (*model.BudgetSnapshot, error)
	CreateExpense(ctx context.Context, in model.ExpenseCreate) (*model.Expense, error)
}

// State is a copy of the coordinator's view state. When Err is set,
// Snapshot is nil so a stale snapshot is never rendered.
type State struct {
	Period   model.Period
	Snapshot *model.BudgetSnapshot
	Loading  bool
	Err      error
}

// Ticket identifies one in-flight load.
type Ticket struct {
	gen    uint64
	period model.Period
	ctx    context.Context
}

// Period is the period the ticket was issued for.
func (t Ticket) Period() model.Period { return t.period }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger used for load and submit outcomes.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator serializes period changes and loads. The last load issued
// wins: every load carries a generation and results from older generations
// are dropped, and starting a load cancels the previous one.
type Coordinator struct {
	backend Backend
	now     func() time.Time
	log     logrus.FieldLogger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewCoordinator starts on period p with no snapshot.
func NewCoordinator(b Backend, p model.Period, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: b,
		now:     time.Now,
		state:   State{Period: p},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c
}

// View returns a copy of the current state.
func (c *Coordinator) View() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Period returns the period on screen.
func (c *Coordinator) Period() model.Period {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Period
}

// ChangePeriod switches the viewed period. The old snapshot is dropped and
// any in-flight load is canceled; the caller starts the reload.
func (c *Coordinator) ChangePeriod(p model.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.cancelLocked()
	c.state = State{Period: p, Loading: true}
	return nil
}

// BeginLoad marks the state as loading and issues a ticket for the current
// period. The previous load, if any, is canceled.
func (c *Coordinator) BeginLoad(parent context.Context) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.cancelLocked()
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel

	c.state.Loading = true
	c.state.Err = nil
	return Ticket{gen: c.gen, period: c.state.Period, ctx: ctx}
}

// Fetch performs the network part of a load. It holds no lock.
func (c *Coordinator) Fetch(t Ticket) (*model.BudgetSnapshot, error) {
	return c.backend.Budget(t.ctx, t.period)
}

// FinishLoad applies a result if t is still the latest ticket and reports
// whether it did.
func (c *Coordinator) FinishLoad(t Ticket, snap *model.BudgetSnapshot, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.gen != c.gen {
		c.log.WithFields(logrus.Fields{"period": t.period.String()}).Debug("discarding stale budget load")
		return false
	}
	c.cancelLocked()
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		c.state.Snapshot = nil
		return true
	}
	c.state.Err = nil
	c.state.Snapshot = snap
	return true
}

// Load fetches the snapshot for the current period and stores it.
func (c *Coordinator) Load(ctx context.Context) error {
	t := c.BeginLoad(ctx)
	snap, err := c.Fetch(t)
	if !c.FinishLoad(t, snap, err) {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("loading budget %s: %w", t.period, err)
	}
	return nil
}

// SubmitQuickAdd resolves form against the period on screen, records the
// expense and reloads the snapshot. Validation failures return before any
// request and before the state turns to loading. Submission failures leave
// the form untouched. A reload overtaken by a period change is not an error;
// any other reload failure is wrapped in ErrReloadAfterSave and also kept
// in the coordinator's error state.
func (c *Coordinator) SubmitQuickAdd(ctx context.Context, form *quickadd.Form, qc quickadd.Context) error {
	p := c.Period()
	err := form.Submit(ctx, p, qc, c.now(), func(ctx context.Context, payload quickadd.Payload) error {
		if _, err := c.backend.CreateExpense(ctx, payload.Expense()); err != nil {
			return fmt.Errorf("creating expense: %w", err)
		}
		c.log.WithFields(logrus.Fields{
			"period": p.String(),
			"date":   payload.Date,
			"amount": payload.Amount.String(),
		}).Info("expense recorded")
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return fmt.Errorf("%w: %w", ErrReloadAfterSave, err)
	}
	return nil
}

func (c *Coordinator) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
