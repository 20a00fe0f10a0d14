package review

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
	"github.com/subgatebot/subgate/internal/registry"
	"github.com/subgatebot/subgate/internal/store"
)

type sentMsg struct {
	chatID int64
	extra  string
	album  bool
}

type fakeGateway struct {
	mu      sync.Mutex
	nextID  int
	failms  bool
	sent    []sentMsg
}

func (f *fakeGateway) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeGateway) SendText(_ context.Context, chatID int64, _ string, _ gateway.SendOpts) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gateway.MessageRef{ChatID: chatID, MessageID: f.id()}, nil
}

func (f *fakeGateway) SendPart(_ context.Context, chatID int64, _ content.Part, extra string, _ gateway.SendOpts) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failms {
		return gateway.MessageRef{}, errors.New("boom")
	}
	f.sent = append(f.sent, sentMsg{chatID: chatID, extra: extra})
	return gateway.MessageRef{ChatID: chatID, MessageID: f.id()}, nil
}

func (f *fakeGateway) SendAlbum(_ context.Context, chatID int64, parts []content.Part, extra string) ([]gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failms {
		return nil, errors.New("boom")
	}
	f.sent = append(f.sent, sentMsg{chatID: chatID, extra: extra, album: true})
	refs := make([]gateway.MessageRef, len(parts))
	for i := range parts {
		refs[i] = gateway.MessageRef{ChatID: chatID, MessageID: f.id()}
	}
	return refs, nil
}

func (f *fakeGateway) EditText(context.Context, gateway.MessageRef, string, gateway.SendOpts) error {
	return nil
}

type fixture struct {
	gw  *fakeGateway
	reg *registry.Registry
	rt  *store.Runtime
	m   *Machine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	rt, err := store.NewRuntime(ctx, fs)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Update(ctx, func(s *store.Snapshot) {
		s.ReviewGroupID = -200
		s.ChannelID = -1001234567890
		s.ChannelName = "mychannel"
	}); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	gw := &fakeGateway{}
	reg := registry.New(gw)
	return &fixture{gw: gw, reg: reg, rt: rt, m: NewMachine(gw, reg, rt, "subgate_bot")}
}

func (fx *fixture) register(t *testing.T, sub *content.Submission) int {
	t.Helper()
	refs, err := fx.reg.Register(context.Background(), sub, -200)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return refs[0].MessageID
}

func textSub(anon bool) *content.Submission {
	s := content.NewSubmission(42, "ann", []content.Part{{Kind: content.KindText, Text: "hi"}})
	s.Anonymous = anon
	return s
}

func TestApprovePublishesAndLinks(t *testing.T) {
	fx := setup(t)
	sub := textSub(true)
	ref := fx.register(t, sub)

	out, err := fx.m.Approve(context.Background(), ref, 1, "rev", "nice")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out.Status != content.StatusApproved || sub.Status() != content.StatusApproved {
		t.Fatalf("status: %v", out.Status)
	}
	if out.PublishErr != nil {
		t.Fatalf("publish err: %v", out.PublishErr)
	}
	if !strings.HasPrefix(out.PostLink, "https://t.me/mychannel/") {
		t.Fatalf("post link: %q", out.PostLink)
	}

	published := fx.gw.sent[len(fx.gw.sent)-1]
	if published.chatID != -1001234567890 {
		t.Fatalf("published to %d", published.chatID)
	}
	if !strings.Contains(published.extra, "nice") {
		t.Fatalf("comment missing from extra: %q", published.extra)
	}
	if strings.Contains(published.extra, "via ") {
		t.Fatalf("anonymous submission must carry no attribution: %q", published.extra)
	}
}

func TestApproveAttributesRealNameSubmission(t *testing.T) {
	fx := setup(t)
	sub := textSub(false)
	ref := fx.register(t, sub)

	if _, err := fx.m.Approve(context.Background(), ref, 1, "rev", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	published := fx.gw.sent[len(fx.gw.sent)-1]
	if !strings.Contains(published.extra, "tg://user?id=42") {
		t.Fatalf("attribution missing: %q", published.extra)
	}
}

func TestDoubleDecisionReturnsAlreadyResolved(t *testing.T) {
	fx := setup(t)
	ref := fx.register(t, textSub(true))
	ctx := context.Background()

	if _, err := fx.m.Approve(ctx, ref, 1, "rev", ""); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := fx.m.Approve(ctx, ref, 2, "other", ""); !errors.Is(err, content.ErrAlreadyResolved) {
		t.Fatalf("second approve: want ErrAlreadyResolved, got %v", err)
	}
	if _, err := fx.m.Reject(ctx, ref, 2, "other", ""); !errors.Is(err, content.ErrAlreadyResolved) {
		t.Fatalf("reject after approve: want ErrAlreadyResolved, got %v", err)
	}
}

func TestConcurrentDecisionsExactlyOneWins(t *testing.T) {
	fx := setup(t)
	ref := fx.register(t, textSub(true))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		approve := i%2 == 0
		go func() {
			defer wg.Done()
			var err error
			if approve {
				_, err = fx.m.Approve(ctx, ref, 1, "rev", "")
			} else {
				_, err = fx.m.Reject(ctx, ref, 1, "rev", "")
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, content.ErrAlreadyResolved):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || losses != 19 {
		t.Fatalf("wins=%d losses=%d", wins, losses)
	}
}

func TestApproveWithoutChannelKeepsPending(t *testing.T) {
	fx := setup(t)
	ref := fx.register(t, textSub(true))
	ctx := context.Background()

	if err := fx.rt.Update(ctx, func(s *store.Snapshot) {
		s.ChannelID = 0
		s.ChannelName = ""
	}); err != nil {
		t.Fatalf("unset channel: %v", err)
	}

	sub, _ := fx.reg.Resolve(ref)
	if _, err := fx.m.Approve(ctx, ref, 1, "rev", ""); !errors.Is(err, content.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if sub.Status() != content.StatusPending {
		t.Fatal("misconfiguration must not consume the decision")
	}
}

func TestApprovePublishFailureKeepsTransition(t *testing.T) {
	fx := setup(t)
	sub := textSub(true)
	ref := fx.register(t, sub)

	fx.gw.failms = true
	out, err := fx.m.Approve(context.Background(), ref, 1, "rev", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out.PublishErr == nil {
		t.Fatal("publish failure must be reported")
	}
	if sub.Status() != content.StatusApproved {
		t.Fatal("delivery failure must not roll back the decision")
	}
}

func TestRejectDoesNotPublish(t *testing.T) {
	fx := setup(t)
	sub := textSub(true)
	ref := fx.register(t, sub)

	before := len(fx.gw.sent)
	out, err := fx.m.Reject(context.Background(), ref, 1, "rev", "off topic")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.Status != content.StatusRejected || sub.Status() != content.StatusRejected {
		t.Fatalf("status: %v", out.Status)
	}
	if len(fx.gw.sent) != before {
		t.Fatal("reject must not send anything to the channel")
	}
	if sub.Decision().Note != "off topic" {
		t.Fatalf("reason not recorded: %+v", sub.Decision())
	}
}

func TestUnknownReferenceIsNotFound(t *testing.T) {
	fx := setup(t)
	if _, err := fx.m.Approve(context.Background(), 9999, 1, "rev", ""); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
