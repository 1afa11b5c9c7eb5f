package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "watch.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestAppendAndRecentNewestFirst(t *testing.T) {
	j, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)

	for i, period := range []string{"2024-01", "2024-02", "2024-02"} {
		_, err := j.Append(ctx, Entry{
			EventID:    int64(i + 1),
			Type:       "budget_delta",
			Period:     period,
			Status:     "ok",
			TotalSpent: decimal.RequireFromString("120.50"),
			Remaining:  decimal.NewFromInt(-5),
			DeltaSpent: decimal.NewFromInt(int64(i)),
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	all, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 || all[0].EventID != 3 || all[2].EventID != 1 {
		t.Fatalf("recent order = %+v", all)
	}
	if !all[0].TotalSpent.Equal(decimal.RequireFromString("120.5")) || !all[0].Remaining.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("amounts = %s / %s", all[0].TotalSpent, all[0].Remaining)
	}
	if !all[0].OccurredAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("occurred_at = %v", all[0].OccurredAt)
	}
	if string(all[0].Payload) != "{}" {
		t.Fatalf("payload = %s", all[0].Payload)
	}

	feb, err := j.Recent(ctx, "2024-02", 1)
	if err != nil {
		t.Fatalf("Recent period: %v", err)
	}
	if len(feb) != 1 || feb[0].EventID != 3 {
		t.Fatalf("period filter = %+v", feb)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	j, path := openTemp(t)
	ctx := context.Background()
	if _, err := j.Append(ctx, Entry{Type: "snapshot", Period: "2024-02", Status: "ok", OccurredAt: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = j.Close()

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = again.Close() }()

	got, err := again.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Type != "snapshot" {
		t.Fatalf("entries after reopen = %+v", got)
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	j, _ := openTemp(t)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{now.AddDate(0, -2, 0), now.Add(-time.Hour), now} {
		if _, err := j.Append(ctx, Entry{Type: "budget_delta", Period: "2024-03", Status: "ok", OccurredAt: at}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := j.Prune(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	left, _ := j.Recent(ctx, "", 10)
	if len(left) != 2 {
		t.Fatalf("left = %d, want 2", len(left))
	}
}
