package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/shopspring/decimal"
)

// fakeBackend serves snapshots keyed by period. A period with a gate
// blocks until the gate is closed, ignoring cancellation so that stale
// results still arrive.
type fakeBackend struct {
	mu        sync.Mutex
	snaps     map[model.Period]*model.BudgetSnapshot
	gates     map[model.Period]chan struct{}
	budgetErr error
	createErr error
	fetches   int
	created   []model.ExpenseCreate
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		snaps: make(map[model.Period]*model.BudgetSnapshot),
		gates: make(map[model.Period]chan struct{}),
	}
}

func (f *fakeBackend) Budget(_ context.Context, p model.Period) (*model.BudgetSnapshot, error) {
	f.mu.Lock()
	gate := f.gates[p]
	f.fetches++
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budgetErr != nil {
		return nil, f.budgetErr
	}
	snap, ok := f.snaps[p]
	if !ok {
		return &model.BudgetSnapshot{Status: model.StatusOK}, nil
	}
	cp := *snap
	return &cp, nil
}

func (f *fakeBackend) CreateExpense(_ context.Context, in model.ExpenseCreate) (*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &model.Expense{ID: int64(len(f.created)), Amount: in.Amount}, nil
}

func snapWithSpent(spent int64) *model.BudgetSnapshot {
	return &model.BudgetSnapshot{
		Status:       model.StatusOK,
		TotalPlanned: decimal.NewFromInt(500),
		TotalSpent:   decimal.NewFromInt(spent),
	}
}

var (
	periodA = model.Period{Year: 2024, Month: time.January}
	periodB = model.Period{Year: 2024, Month: time.February}
)

func TestLoadStoresSnapshot(t *testing.T) {
	fb := newFakeBackend()
	fb.snaps[periodA] = snapWithSpent(120)
	c := NewCoordinator(fb, periodA)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := c.View()
	if st.Loading || st.Err != nil || st.Snapshot == nil {
		t.Fatalf("state = %+v", st)
	}
	if !st.Snapshot.TotalSpent.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("spent = %s", st.Snapshot.TotalSpent)
	}
}

func TestReloadSamePeriodIsIdempotent(t *testing.T) {
	fb := newFakeBackend()
	fb.snaps[periodA] = snapWithSpent(80)
	c := NewCoordinator(fb, periodA)

	_ = c.Load(context.Background())
	first := PresentSnapshot(c.View().Snapshot)
	_ = c.Load(context.Background())
	second := PresentSnapshot(c.View().Snapshot)

	if first.Spent != second.Spent || first.Remaining != second.Remaining || first.Planned != second.Planned {
		t.Fatalf("totals changed between identical loads: %+v vs %+v", first, second)
	}
}

func TestFetchErrorHidesSnapshot(t *testing.T) {
	fb := newFakeBackend()
	c := NewCoordinator(fb, periodA)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	fb.budgetErr = errors.New("backend down")
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	st := c.View()
	if st.Err == nil || st.Snapshot != nil {
		t.Fatalf("state after failure = %+v, want error and no snapshot", st)
	}
}

func TestChangePeriodDropsOldSnapshot(t *testing.T) {
	fb := newFakeBackend()
	fb.snaps[periodA] = snapWithSpent(10)
	c := NewCoordinator(fb, periodA)
	_ = c.Load(context.Background())

	if err := c.ChangePeriod(periodB); err != nil {
		t.Fatalf("ChangePeriod: %v", err)
	}
	st := c.View()
	if st.Snapshot != nil || !st.Loading || st.Period != periodB {
		t.Fatalf("state after switch = %+v", st)
	}
	if err := c.ChangePeriod(model.Period{Year: 2024, Month: 13}); err == nil {
		t.Fatal("invalid period accepted")
	}
}

func TestLatestPeriodWinsRegardlessOfResponseOrder(t *testing.T) {
	for _, releaseAFirst := range []bool{true, false} {
		fb := newFakeBackend()
		fb.snaps[periodA] = snapWithSpent(111)
		fb.snaps[periodB] = snapWithSpent(222)
		gateA := make(chan struct{})
		gateB := make(chan struct{})
		fb.gates[periodA] = gateA
		fb.gates[periodB] = gateB

		c := NewCoordinator(fb, periodA)

		errA := make(chan error, 1)
		ticketA := c.BeginLoad(context.Background())
		go func() {
			snap, err := c.Fetch(ticketA)
			if !c.FinishLoad(ticketA, snap, err) {
				errA <- ErrSuperseded
				return
			}
			errA <- err
		}()

		if err := c.ChangePeriod(periodB); err != nil {
			t.Fatalf("ChangePeriod: %v", err)
		}
		errB := make(chan error, 1)
		go func() { errB <- c.Load(context.Background()) }()

		if releaseAFirst {
			close(gateA)
			if err := <-errA; !errors.Is(err, ErrSuperseded) {
				t.Fatalf("stale load err = %v, want ErrSuperseded", err)
			}
			close(gateB)
			if err := <-errB; err != nil {
				t.Fatalf("load B: %v", err)
			}
		} else {
			close(gateB)
			if err := <-errB; err != nil {
				t.Fatalf("load B: %v", err)
			}
			close(gateA)
			if err := <-errA; !errors.Is(err, ErrSuperseded) {
				t.Fatalf("stale load err = %v, want ErrSuperseded", err)
			}
		}

		st := c.View()
		if st.Period != periodB || st.Snapshot == nil || !st.Snapshot.TotalSpent.Equal(decimal.NewFromInt(222)) {
			t.Fatalf("releaseAFirst=%v: final state = %+v, want period B data", releaseAFirst, st)
		}
		if st.Loading {
			t.Fatalf("releaseAFirst=%v: still loading", releaseAFirst)
		}
	}
}

func TestChangePeriodCancelsInFlightLoad(t *testing.T) {
	fb := newFakeBackend()
	c := NewCoordinator(fb, periodA)

	ticket := c.BeginLoad(context.Background())
	if err := c.ChangePeriod(periodB); err != nil {
		t.Fatalf("ChangePeriod: %v", err)
	}
	select {
	case <-ticket.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("in-flight load was not canceled by the period change")
	}
}

func TestSubmitQuickAddPostsThenReloads(t *testing.T) {
	fb := newFakeBackend()
	fb.snaps[periodB] = snapWithSpent(50)
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.Local)
	c := NewCoordinator(fb, periodB, WithClock(func() time.Time { return now }))

	line := model.BudgetLine{ID: 4, Category: "2", Kind: model.KindPlanned}
	form := quickadd.NewForm(periodB, now)
	form.Amount = "15"

	if err := c.SubmitQuickAdd(context.Background(), &form, quickadd.ContextFor(line)); err != nil {
		t.Fatalf("SubmitQuickAdd: %v", err)
	}
	if len(fb.created) != 1 {
		t.Fatalf("created = %d, want 1", len(fb.created))
	}
	got := fb.created[0]
	if got.Date != "2024-02-10" || got.PlannedExpense == nil || *got.PlannedExpense != 4 || got.RecurringPayment != nil {
		t.Fatalf("expense body = %+v", got)
	}
	if fb.fetches != 1 {
		t.Fatalf("fetches = %d, want a reload after the post", fb.fetches)
	}
	if form.Amount != "" {
		t.Fatal("form not reset after success")
	}
}

func TestSubmitQuickAddZeroAmountTouchesNothing(t *testing.T) {
	fb := newFakeBackend()
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.Local)
	c := NewCoordinator(fb, periodB, WithClock(func() time.Time { return now }))

	form := quickadd.Form{Amount: "0", Option: quickadd.OptionToday}
	err := c.SubmitQuickAdd(context.Background(), &form, quickadd.ContextFor(model.BudgetLine{ID: 1, Kind: model.KindPlanned}))
	if !errors.Is(err, quickadd.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if len(fb.created) != 0 || fb.fetches != 0 {
		t.Fatalf("blocked submit reached the backend: created=%d fetches=%d", len(fb.created), fb.fetches)
	}
	if c.View().Loading {
		t.Fatal("blocked submit entered the loading state")
	}
}

func TestSubmitQuickAddFailureKeepsForm(t *testing.T) {
	fb := newFakeBackend()
	fb.createErr = errors.New("400 bad request")
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.Local)
	c := NewCoordinator(fb, periodB, WithClock(func() time.Time { return now }))

	form := quickadd.Form{Amount: "9", Option: quickadd.OptionToday, Note: "cafe"}
	err := c.SubmitQuickAdd(context.Background(), &form, quickadd.ContextFor(model.BudgetLine{ID: 1, Kind: model.KindRecurring}))
	if err == nil {
		t.Fatal("expected submit error")
	}
	if errors.Is(err, ErrReloadAfterSave) {
		t.Fatalf("failed post reported as saved: %v", err)
	}
	if form.Amount != "9" || form.Note != "cafe" {
		t.Fatalf("form lost input: %+v", form)
	}
	if fb.fetches != 0 {
		t.Fatalf("failed submit triggered %d reloads", fb.fetches)
	}
}

func TestSubmitQuickAddReloadFailureIsNotASaveFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.budgetErr = errors.New("502 bad gateway")
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.Local)
	c := NewCoordinator(fb, periodB, WithClock(func() time.Time { return now }))

	form := quickadd.Form{Amount: "9", Option: quickadd.OptionToday}
	err := c.SubmitQuickAdd(context.Background(), &form, quickadd.ContextFor(model.BudgetLine{ID: 1, Kind: model.KindPlanned}))
	if !errors.Is(err, ErrReloadAfterSave) {
		t.Fatalf("err = %v, want ErrReloadAfterSave", err)
	}
	if !errors.Is(err, fb.budgetErr) {
		t.Fatalf("err = %v does not wrap the load error", err)
	}
	if len(fb.created) != 1 {
		t.Fatalf("created = %d, want 1", len(fb.created))
	}
	if form.Amount != "" {
		t.Fatal("form not reset after the expense was saved")
	}
	v := c.View()
	if v.Err == nil || v.Snapshot != nil {
		t.Fatalf("view = %+v, want the reload error with no snapshot", v)
	}
}
