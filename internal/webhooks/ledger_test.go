package webhooks

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryLedgerMarksAndReports(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(10, 0)
	if seen, err := l.HasProcessed(ctx, "e1"); err != nil || seen {
		t.Fatalf("fresh ledger: seen=%v err=%v", seen, err)
	}
	if err := l.MarkProcessed(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkProcessed(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if seen, _ := l.HasProcessed(ctx, "e1"); !seen {
		t.Fatal("expected e1 to be processed")
	}
	if l.Len() != 1 {
		t.Fatalf("double mark should keep one entry, got %d", l.Len())
	}
	if _, err := l.HasProcessed(ctx, ""); err == nil {
		t.Fatal("empty id should error")
	}
	if err := l.MarkProcessed(ctx, " "); err == nil {
		t.Fatal("empty id should error")
	}
}

func TestMemoryLedgerEvictsFirstMarked(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(3, 0)
	for i := 0; i < 4; i++ {
		if err := l.MarkProcessed(ctx, fmt.Sprintf("e%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if l.Len() != 3 {
		t.Fatalf("len=%d want 3", l.Len())
	}
	if seen, _ := l.HasProcessed(ctx, "e0"); seen {
		t.Fatal("e0 should have been evicted")
	}
	for _, id := range []string{"e1", "e2", "e3"} {
		if seen, _ := l.HasProcessed(ctx, id); !seen {
			t.Fatalf("%s should be kept", id)
		}
	}
}

func TestMemoryLedgerTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewMemoryLedger(10, time.Minute)
	l.Now = func() time.Time { return now }

	_ = l.MarkProcessed(ctx, "e1")
	now = now.Add(30 * time.Second)
	if seen, _ := l.HasProcessed(ctx, "e1"); !seen {
		t.Fatal("e1 should still be remembered")
	}
	now = now.Add(time.Minute)
	if seen, _ := l.HasProcessed(ctx, "e1"); seen {
		t.Fatal("e1 should have expired")
	}
	_ = l.MarkProcessed(ctx, "e2")
	if l.Len() != 1 {
		t.Fatalf("expired entry should be pruned on mark, len=%d", l.Len())
	}
}
