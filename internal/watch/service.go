// Package watch provides the long-running budget monitor service.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/notify"
	"github.com/Jcruzb/controlants/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Event types.
const (
	EventSnapshot      = "snapshot"
	EventBudgetDelta   = "budget_delta"
	EventStatusChanged = "status_changed"
	EventPeriodStarted = "period_started"
)

// Source fetches the budget snapshot for a month.
type Source interface {
	Budget(ctx context.Context, p model.Period) (*model.BudgetSnapshot, error)
}

// Journal persists events.
type Journal interface {
	Append(ctx context.Context, e store.Entry) (int64, error)
}

// Publisher forwards events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, msg notify.Message) error
}

// Config controls the watch runtime behavior.
type Config struct {
	Schedule     string
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact budget state for status/event payloads.
type Snapshot struct {
	At           time.Time       `json:"at"`
	Period       string          `json:"period"`
	Status       model.Status    `json:"status"`
	TotalPlanned decimal.Decimal `json:"total_planned"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Unplanned    decimal.Decimal `json:"unplanned"`
	LinesOver    []string        `json:"lines_over,omitempty"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Unplanned  decimal.Decimal `json:"unplanned"`
	StatusFrom model.Status    `json:"status_from,omitempty"`
	StatusTo   model.Status    `json:"status_to,omitempty"`
	NewlyOver  []string        `json:"newly_over,omitempty"`
}

func (d Delta) isZero() bool {
	return d.Spent.IsZero() &&
		d.Remaining.IsZero() &&
		d.Unplanned.IsZero() &&
		d.StatusFrom == d.StatusTo &&
		len(d.NewlyOver) == 0
}

// Event is emitted whenever the budget snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	Schedule        string    `json:"schedule"`
	PollCount       int64     `json:"poll_count"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every event in j.
func WithJournal(j Journal) Option { return func(s *Service) { s.journal = j } }

// WithPublisher forwards every event to p.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithLogger sets the service logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service polls the current month's budget and serves changes over HTTP.
type Service struct {
	cfg       Config
	src       Source
	journal   Journal
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time

	// pollMu serializes polls so event IDs and ring order agree.
	pollMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a watch service polling src.
func New(cfg Config, src Source, opts ...Option) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	s := &Service{
		cfg:  cfg,
		src:  src,
		now:  time.Now,
		subs: make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		s.log = l
	}
	s.startedAt = s.now()
	return s
}

// Run starts HTTP endpoints and scheduled polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.log))))
	if _, err := scheduler.AddFunc(s.cfg.Schedule, func() { s.PollOnce(ctx) }); err != nil {
		return fmt.Errorf("watch schedule %q: %w", s.cfg.Schedule, err)
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.WithFields(logrus.Fields{"addr": s.cfg.Addr, "schedule": s.cfg.Schedule}).Info("watch started")

	// Seed initial snapshot so status is useful immediately.
	s.PollOnce(ctx)
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("watch stopping")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("watch http server: %w", err)
	}
}

// PollOnce fetches the current month and emits an event when it changed.
func (s *Service) PollOnce(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	now := s.now()
	period := model.CurrentPeriod(now)

	raw, err := s.src.Budget(ctx, period)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.WithError(err).WithField("period", period.String()).Warn("watch poll failed")
		return
	}

	snap := snapshotFromBudget(raw, period, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	switch {
	case !prevExists:
		ev = s.newEventLocked(EventSnapshot, now, snap, Delta{})
		publish = true
	case prev.Period != snap.Period:
		ev = s.newEventLocked(EventPeriodStarted, now, snap, Delta{})
		publish = true
	default:
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			typ := EventBudgetDelta
			if delta.StatusFrom != delta.StatusTo {
				typ = EventStatusChanged
			}
			ev = s.newEventLocked(typ, now, snap, delta)
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
		s.forward(ctx, ev)
	}
}

func (s *Service) newEventLocked(typ string, at time.Time, snap Snapshot, delta Delta) Event {
	s.nextEventID++
	return Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: at,
		Snapshot:  snap,
		Delta:     delta,
	}
}

// forward hands ev to the journal and the broker. Failures are logged;
// the in-memory stream is authoritative.
func (s *Service) forward(ctx context.Context, ev Event) {
	fields := logrus.Fields{"event_id": ev.ID, "type": ev.Type, "period": ev.Snapshot.Period}
	s.log.WithFields(fields).Info("budget changed")

	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).WithFields(fields).Error("encoding event")
		return
	}

	if s.journal != nil {
		_, err := s.journal.Append(ctx, store.Entry{
			EventID:    ev.ID,
			Type:       ev.Type,
			Period:     ev.Snapshot.Period,
			Status:     string(ev.Snapshot.Status),
			TotalSpent: ev.Snapshot.TotalSpent,
			Remaining:  ev.Snapshot.Remaining,
			DeltaSpent: ev.Delta.Spent,
			OccurredAt: ev.Timestamp,
			Payload:    payload,
		})
		if err != nil {
			s.log.WithError(err).WithFields(fields).Error("journal append failed")
		}
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, notify.Message{
			Type:      ev.Type,
			Period:    ev.Snapshot.Period,
			Timestamp: ev.Timestamp,
			Data:      payload,
		})
		if err != nil {
			s.log.WithError(err).WithFields(fields).Error("notify publish failed")
		}
	}
}

func snapshotFromBudget(b *model.BudgetSnapshot, p model.Period, at time.Time) Snapshot {
	snap := Snapshot{
		At:           at,
		Period:       p.String(),
		Status:       b.Status,
		TotalPlanned: b.TotalPlanned,
		TotalSpent:   b.TotalSpent,
		Remaining:    b.RemainingAmount,
		Unplanned:    b.UnplannedTotal,
	}
	for _, line := range b.Lines() {
		if line.Status == model.StatusOver {
			snap.LinesOver = append(snap.LinesOver, line.Title())
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	d := Delta{
		Spent:     curr.TotalSpent.Sub(prev.TotalSpent),
		Remaining: curr.Remaining.Sub(prev.Remaining),
		Unplanned: curr.Unplanned.Sub(prev.Unplanned),
	}
	if prev.Status != curr.Status {
		d.StatusFrom = prev.Status
		d.StatusTo = curr.Status
	}

	wasOver := make(map[string]bool, len(prev.LinesOver))
	for _, name := range prev.LinesOver {
		wasOver[name] = true
	}
	for _, name := range curr.LinesOver {
		if !wasOver[name] {
			d.NewlyOver = append(d.NewlyOver, name)
		}
	}
	return d
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// CurrentStatus returns the service state served at /v1/status.
func (s *Service) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
