package warnings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/subgatebot/subgate/internal/store"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	rt, err := store.NewRuntime(context.Background(), fs)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return NewLedger(rt)
}

func TestWarnCountsAndBansAtThreshold(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	const user = int64(42)

	for i := 1; i < Threshold; i++ {
		count, banned, err := l.Warn(ctx, user)
		if err != nil {
			t.Fatalf("warn %d: %v", i, err)
		}
		if count != i || banned {
			t.Fatalf("warn %d: count=%d banned=%v", i, count, banned)
		}
	}

	count, banned, err := l.Warn(ctx, user)
	if err != nil {
		t.Fatalf("threshold warn: %v", err)
	}
	if count != Threshold || !banned {
		t.Fatalf("threshold warn: count=%d banned=%v", count, banned)
	}
	if !l.IsBanned(user) {
		t.Fatal("user must be blocked after threshold")
	}
}

func TestWarnPastThresholdNeverBansTwice(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	const user = int64(7)

	for i := 0; i < Threshold; i++ {
		if _, _, err := l.Warn(ctx, user); err != nil {
			t.Fatalf("warn: %v", err)
		}
	}
	count, banned, err := l.Warn(ctx, user)
	if err != nil {
		t.Fatalf("extra warn: %v", err)
	}
	if banned {
		t.Fatal("already-banned user must not escalate again")
	}
	if count != Threshold+1 {
		t.Fatalf("count must keep increasing, got %d", count)
	}
}

func TestManualBanIsIdempotentAndKeepsCount(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	const user = int64(9)

	if _, _, err := l.Warn(ctx, user); err != nil {
		t.Fatalf("warn: %v", err)
	}

	changed, err := l.Ban(ctx, user)
	if err != nil || !changed {
		t.Fatalf("first ban: changed=%v err=%v", changed, err)
	}
	changed, err = l.Ban(ctx, user)
	if err != nil || changed {
		t.Fatalf("second ban must be a no-op: changed=%v err=%v", changed, err)
	}
	if l.Count(user) != 1 {
		t.Fatalf("ban must not touch warning count, got %d", l.Count(user))
	}

	changed, err = l.Unban(ctx, user)
	if err != nil || !changed {
		t.Fatalf("unban: changed=%v err=%v", changed, err)
	}
	changed, err = l.Unban(ctx, user)
	if err != nil || changed {
		t.Fatalf("second unban must be a no-op: changed=%v err=%v", changed, err)
	}
	if l.Count(user) != 1 {
		t.Fatalf("unban must not reset warning count, got %d", l.Count(user))
	}
}
