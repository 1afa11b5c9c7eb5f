package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/notify"
	"github.com/Jcruzb/controlants/internal/store"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	mu    sync.Mutex
	snaps []*model.BudgetSnapshot
	err   error
	asked []model.Period
}

func (f *fakeSource) Budget(_ context.Context, p model.Period) (*model.BudgetSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, p)
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snaps[0]
	if len(f.snaps) > 1 {
		f.snaps = f.snaps[1:]
	}
	return snap, nil
}

type fakeJournal struct{ entries []store.Entry }

func (f *fakeJournal) Append(_ context.Context, e store.Entry) (int64, error) {
	f.entries = append(f.entries, e)
	return int64(len(f.entries)), nil
}

type fakePublisher struct {
	msgs []notify.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, m notify.Message) error {
	f.msgs = append(f.msgs, m)
	return f.err
}

func budget(status model.Status, spent, remaining int64) *model.BudgetSnapshot {
	return &model.BudgetSnapshot{
		Status:          status,
		TotalPlanned:    decimal.NewFromInt(500),
		TotalSpent:      decimal.NewFromInt(spent),
		RemainingAmount: decimal.NewFromInt(remaining),
	}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Status:     model.StatusOK,
		TotalSpent: decimal.RequireFromString("310.40"),
		Remaining:  decimal.RequireFromString("189.60"),
		Unplanned:  decimal.NewFromInt(20),
		LinesOver:  []string{"Ocio"},
	}
	curr := Snapshot{
		Status:     model.StatusWarning,
		TotalSpent: decimal.RequireFromString("455.90"),
		Remaining:  decimal.RequireFromString("44.10"),
		Unplanned:  decimal.NewFromInt(20),
		LinesOver:  []string{"Ocio", "Alimentación"},
	}

	delta := diffSnapshots(prev, curr)
	if !delta.Spent.Equal(decimal.RequireFromString("145.5")) {
		t.Fatalf("Spent delta = %s, want 145.5", delta.Spent)
	}
	if !delta.Remaining.Equal(decimal.RequireFromString("-145.5")) {
		t.Fatalf("Remaining delta = %s, want -145.5", delta.Remaining)
	}
	if !delta.Unplanned.IsZero() {
		t.Fatalf("Unplanned delta = %s, want 0", delta.Unplanned)
	}
	if delta.StatusFrom != model.StatusOK || delta.StatusTo != model.StatusWarning {
		t.Fatalf("status change = %q -> %q", delta.StatusFrom, delta.StatusTo)
	}
	if len(delta.NewlyOver) != 1 || delta.NewlyOver[0] != "Alimentación" {
		t.Fatalf("NewlyOver = %v", delta.NewlyOver)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, &fakeSource{})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnceEmitsOnlyOnChange(t *testing.T) {
	src := &fakeSource{snaps: []*model.BudgetSnapshot{
		budget(model.StatusOK, 100, 400),
		budget(model.StatusOK, 100, 400),
		budget(model.StatusOK, 150, 350),
		budget(model.StatusOver, 620, -120),
	}}
	j := &fakeJournal{}
	pub := &fakePublisher{err: errors.New("broker down")}
	now := time.Date(2024, time.February, 10, 9, 0, 0, 0, time.Local)
	s := New(Config{}, src, WithJournal(j), WithPublisher(pub), WithClock(func() time.Time { return now }))

	for i := 0; i < 4; i++ {
		s.PollOnce(context.Background())
	}

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()

	wantTypes := []string{EventSnapshot, EventBudgetDelta, EventStatusChanged}
	if len(events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].Type != want || events[i].ID != int64(i+1) {
			t.Fatalf("event %d = %s/%d, want %s/%d", i, events[i].Type, events[i].ID, want, i+1)
		}
	}
	if !events[1].Delta.Spent.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("delta spent = %s", events[1].Delta.Spent)
	}

	if len(j.entries) != 3 || j.entries[2].Status != "over" || j.entries[2].Period != "2024-02" {
		t.Fatalf("journal = %+v", j.entries)
	}
	if len(pub.msgs) != 3 {
		t.Fatalf("published %d, want 3 even when the broker fails", len(pub.msgs))
	}
	if src.asked[0] != (model.Period{Year: 2024, Month: time.February}) {
		t.Fatalf("polled period = %v", src.asked[0])
	}

	st := s.CurrentStatus()
	if st.PollCount != 4 || st.EventCount != 3 || st.LastError != "" {
		t.Fatalf("status = %+v", st)
	}
}

type gatedSource struct {
	mu       sync.Mutex
	calls    int
	inflight int
	maxSeen  int
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedSource) Budget(context.Context, model.Period) (*model.BudgetSnapshot, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.inflight++
	g.maxSeen = max(g.maxSeen, g.inflight)
	g.mu.Unlock()

	g.entered <- struct{}{}
	<-g.release

	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()
	return budget(model.StatusOK, int64(100*call), 500-int64(100*call)), nil
}

func TestPollOnceDoesNotOverlap(t *testing.T) {
	src := &gatedSource{entered: make(chan struct{}, 2), release: make(chan struct{})}
	s := New(Config{}, src)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.PollOnce(context.Background()) }()
	<-src.entered
	go func() { defer wg.Done(); s.PollOnce(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-src.entered:
		t.Fatal("second poll reached the backend while the first was running")
	default:
	}

	close(src.release)
	wg.Wait()

	if src.maxSeen != 1 {
		t.Fatalf("concurrent polls = %d, want 1", src.maxSeen)
	}
	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()
	if len(events) != 2 || events[0].ID != 1 || events[1].ID != 2 {
		t.Fatalf("events out of order: %+v", events)
	}
}

func TestPollOnceRecordsErrorAndNewMonth(t *testing.T) {
	src := &fakeSource{snaps: []*model.BudgetSnapshot{budget(model.StatusOK, 10, 490)}}
	now := time.Date(2024, time.January, 31, 23, 0, 0, 0, time.Local)
	s := New(Config{}, src, WithClock(func() time.Time { return now }))

	s.PollOnce(context.Background())

	src.err = errors.New("503")
	s.PollOnce(context.Background())
	if st := s.CurrentStatus(); st.LastError != "503" || st.PollCount != 2 {
		t.Fatalf("status after failure = %+v", st)
	}

	src.err = nil
	now = time.Date(2024, time.February, 1, 0, 5, 0, 0, time.Local)
	s.PollOnce(context.Background())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 || s.events[1].Type != EventPeriodStarted || s.events[1].Snapshot.Period != "2024-02" {
		t.Fatalf("events = %+v", s.events)
	}
	if s.lastError != "" {
		t.Fatalf("error not cleared: %q", s.lastError)
	}
}

func TestHTTPRoutes(t *testing.T) {
	src := &fakeSource{snaps: []*model.BudgetSnapshot{
		budget(model.StatusOK, 100, 400),
		budget(model.StatusOK, 130, 370),
	}}
	s := New(Config{}, src)
	s.PollOnce(context.Background())
	s.PollOnce(context.Background())
	h := s.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	var st Status
	if err := json.Unmarshal(get("/v1/status").Body.Bytes(), &st); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if st.EventCount != 2 || !st.Summary.TotalSpent.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("status = %+v", st)
	}

	var events []Event
	if err := json.Unmarshal(get("/v1/events?since=1").Body.Bytes(), &events); err != nil {
		t.Fatalf("events body: %v", err)
	}
	if len(events) != 1 || events[0].ID != 2 {
		t.Fatalf("events since 1 = %+v", events)
	}

	if rec := get("/v1/events?since=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad since = %d", rec.Code)
	}
	if rec := get("/v1/events/2"); rec.Code != http.StatusOK {
		t.Fatalf("event 2 = %d", rec.Code)
	}
	if rec := get("/v1/events/99"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing event = %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}
