// Package store provides a SQLite-backed journal of budget watch events.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // register sqlite driver
)

// tsLayout has fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one journaled watch event.
type Entry struct {
	Seq        int64           `json:"seq"`
	EventID    int64           `json:"event_id"`
	Type       string          `json:"type"`
	Period     string          `json:"period"`
	Status     string          `json:"status"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	DeltaSpent decimal.Decimal `json:"delta_spent"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Journal appends and reads watch events.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at dbPath and applies pending migrations.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}

	if err := migrateUp(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores e and returns its sequence number.
func (j *Journal) Append(ctx context.Context, e Entry) (int64, error) {
	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO events (event_id, type, period, status, total_spent, remaining, delta_spent, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.Type, e.Period, e.Status,
		e.TotalSpent.String(), e.Remaining.String(), e.DeltaSpent.String(),
		e.OccurredAt.UTC().Format(tsLayout), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. An empty period
// matches every period.
func (j *Journal) Recent(ctx context.Context, period string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, event_id, type, period, status, total_spent, remaining, delta_spent, occurred_at, payload
		FROM events
		WHERE (? = '' OR period = ?)
		ORDER BY id DESC
		LIMIT ?`, period, period, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                       Entry
			spent, remaining, delta string
			occurred, payload       string
		)
		if err := rows.Scan(&e.Seq, &e.EventID, &e.Type, &e.Period, &e.Status,
			&spent, &remaining, &delta, &occurred, &payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.TotalSpent, err = decimal.NewFromString(spent); err != nil {
			return nil, fmt.Errorf("event %d total_spent: %w", e.Seq, err)
		}
		if e.Remaining, err = decimal.NewFromString(remaining); err != nil {
			return nil, fmt.Errorf("event %d remaining: %w", e.Seq, err)
		}
		if e.DeltaSpent, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("event %d delta_spent: %w", e.Seq, err)
		}
		if e.OccurredAt, err = time.Parse(tsLayout, occurred); err != nil {
			return nil, fmt.Errorf("event %d occurred_at: %w", e.Seq, err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune removes entries older than cutoff and returns how many were deleted.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, "DELETE FROM events WHERE occurred_at < ?", cutoff.UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}
