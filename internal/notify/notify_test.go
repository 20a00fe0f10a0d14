package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/subgatebot/subgate/core/telegram/sender"
	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
)

type fakeGateway struct {
	mu      sync.Mutex
	fail    bool
	texts   map[int64][]string
	replyTo map[int64][]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{texts: make(map[int64][]string), replyTo: make(map[int64][]int)}
}

func (f *fakeGateway) SendText(_ context.Context, chatID int64, text string, opts gateway.SendOpts) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return gateway.MessageRef{}, errors.New("forbidden: bot was blocked by the user")
	}
	f.texts[chatID] = append(f.texts[chatID], text)
	f.replyTo[chatID] = append(f.replyTo[chatID], opts.ReplyTo)
	return gateway.MessageRef{ChatID: chatID, MessageID: len(f.texts[chatID])}, nil
}

func (f *fakeGateway) SendPart(_ context.Context, chatID int64, _ content.Part, _ string, _ gateway.SendOpts) (gateway.MessageRef, error) {
	return gateway.MessageRef{ChatID: chatID, MessageID: 1}, nil
}

func (f *fakeGateway) SendAlbum(_ context.Context, chatID int64, parts []content.Part, _ string) ([]gateway.MessageRef, error) {
	return make([]gateway.MessageRef, len(parts)), nil
}

func (f *fakeGateway) EditText(context.Context, gateway.MessageRef, string, gateway.SendOpts) error {
	return nil
}

func (f *fakeGateway) sentTo(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts[userID]...)
}

func newNotifier(gw *fakeGateway) (*Notifier, *sender.Dispatcher) {
	disp := sender.NewDispatcher(sender.Options{
		QueueSize:    16,
		Workers:      2,
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
		MaxDuration:  time.Second,
	})
	return New(gw, disp), disp
}

func TestApprovedNoticeCarriesLinkAndComment(t *testing.T) {
	gw := newFakeGateway()
	n, disp := newNotifier(gw)

	n.Approved(context.Background(), 42, 17, "https://t.me/chan/5", "great shot")
	disp.Close()

	got := gw.sentTo(42)
	if len(got) != 1 {
		t.Fatalf("notices sent: %d", len(got))
	}
	if !strings.Contains(got[0], "https://t.me/chan/5") {
		t.Fatalf("link missing: %q", got[0])
	}
	if !strings.Contains(got[0], "great shot") {
		t.Fatalf("comment missing: %q", got[0])
	}

	gw.mu.Lock()
	reply := gw.replyTo[42]
	gw.mu.Unlock()
	if len(reply) != 1 || reply[0] != 17 {
		t.Fatalf("notice must reply to the submitter's original message, got %v", reply)
	}
}

func TestRejectedNoticeOmitsEmptyReason(t *testing.T) {
	gw := newFakeGateway()
	n, disp := newNotifier(gw)

	n.Rejected(context.Background(), 42, 9, "")
	disp.Close()

	got := gw.sentTo(42)
	if len(got) != 1 {
		t.Fatalf("notices sent: %d", len(got))
	}
	if strings.Contains(got[0], "Reason") {
		t.Fatalf("empty reason must not render a reason block: %q", got[0])
	}

	gw.mu.Lock()
	reply := gw.replyTo[42]
	gw.mu.Unlock()
	if len(reply) != 1 || reply[0] != 9 {
		t.Fatalf("notice must reply to the submitter's original message, got %v", reply)
	}
}

func TestWarnedNoticeShowsCount(t *testing.T) {
	gw := newFakeGateway()
	n, disp := newNotifier(gw)

	n.Warned(context.Background(), 42, 2, "spam")
	disp.Close()

	got := gw.sentTo(42)
	if len(got) != 1 || !strings.Contains(got[0], "(2/3)") {
		t.Fatalf("count missing: %v", got)
	}
	if !strings.Contains(got[0], "spam") {
		t.Fatalf("reason missing: %q", got[0])
	}
}

func TestRelayIsSynchronousAndSurfacesFailure(t *testing.T) {
	gw := newFakeGateway()
	n, disp := newNotifier(gw)
	defer disp.Close()

	if err := n.Relay(context.Background(), 42, "hello <there>"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	got := gw.sentTo(42)
	if len(got) != 1 {
		t.Fatalf("relay must send immediately, sent=%d", len(got))
	}
	if !strings.Contains(got[0], "hello &lt;there&gt;") {
		t.Fatalf("relay text must be escaped verbatim: %q", got[0])
	}

	gw.mu.Lock()
	gw.fail = true
	gw.mu.Unlock()
	if err := n.Relay(context.Background(), 42, "again"); err == nil {
		t.Fatal("relay failure must surface to the caller")
	}
}

func TestNoticeFailureIsNonFatal(t *testing.T) {
	gw := newFakeGateway()
	gw.fail = true
	n, disp := newNotifier(gw)

	// Must not panic or block even though every send fails.
	n.Banned(context.Background(), 42)
	n.Unbanned(context.Background(), 42)
	disp.Close()

	if disp.ErrorCount() == 0 {
		t.Fatal("failed notices must be counted")
	}
}
