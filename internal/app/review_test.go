package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/subgatebot/subgate/internal/replymode"
	"github.com/subgatebot/subgate/internal/store"
)

type captureRelayer struct {
	mu        sync.Mutex
	delivered []string
}

func (r *captureRelayer) Relay(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, text)
	return nil
}

func (r *captureRelayer) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.delivered...)
}

func sessionApp(t *testing.T) (*App, *captureRelayer) {
	t.Helper()
	backend := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	settings, err := store.NewRuntime(context.Background(), backend)
	if err != nil {
		t.Fatal(err)
	}
	if err := settings.Update(context.Background(), func(s *store.Snapshot) {
		s.ReviewGroupID = -100500
	}); err != nil {
		t.Fatal(err)
	}

	relay := &captureRelayer{}
	a := &App{settings: settings, choices: newChoiceTable()}
	a.sessions = replymode.NewRouter(relay)
	return a, relay
}

func TestRelaySessionTextOnlyInReviewGroup(t *testing.T) {
	a, relay := sessionApp(t)
	ctx := context.Background()
	a.sessions.Enter(ctx, 42, 1000)

	// A reviewer's private chat with the bot stays a submission channel
	// even while their session is open.
	handled, _ := a.relaySessionText(ctx, 42, 42, "my own submission for the channel")
	if handled {
		t.Fatal("private-chat text must not be relayed")
	}
	if got := relay.texts(); len(got) != 0 {
		t.Fatalf("nothing may be delivered, got %v", got)
	}

	handled, notice := a.relaySessionText(ctx, -100500, 42, "note to the submitter")
	if !handled || notice != "" {
		t.Fatalf("review-group text must relay cleanly: handled=%v notice=%q", handled, notice)
	}
	if got := relay.texts(); len(got) != 1 || got[0] != "note to the submitter" {
		t.Fatalf("relay mismatch: %v", got)
	}
}

func TestRelaySessionTextIgnoresInactiveReviewer(t *testing.T) {
	a, relay := sessionApp(t)

	handled, _ := a.relaySessionText(context.Background(), -100500, 42, "chatter")
	if handled {
		t.Fatal("no session, no relay")
	}
	if got := relay.texts(); len(got) != 0 {
		t.Fatalf("nothing may be delivered, got %v", got)
	}
}

func TestRelaySessionTextRefusesBlockedTarget(t *testing.T) {
	a, relay := sessionApp(t)
	ctx := context.Background()
	a.sessions.Enter(ctx, 42, 1000)

	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		if s.Blocked == nil {
			s.Blocked = make(map[int64]bool)
		}
		s.Blocked[1000] = true
	}); err != nil {
		t.Fatal(err)
	}

	handled, notice := a.relaySessionText(ctx, -100500, 42, "still there?")
	if !handled {
		t.Fatal("the message belongs to the session and must be claimed")
	}
	if !strings.Contains(notice, "banned") {
		t.Fatalf("reviewer must learn the target is banned, notice=%q", notice)
	}
	if got := relay.texts(); len(got) != 0 {
		t.Fatalf("nothing may reach a banned target, got %v", got)
	}
}
