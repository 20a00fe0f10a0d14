package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
)

// fakeGateway hands out sequential message ids and can be told to fail.
type fakeGateway struct {
	mu     sync.Mutex
	nextID int
	fail   bool
	albums int
	sends  int
}

func (f *fakeGateway) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeGateway) SendText(_ context.Context, chatID int64, _ string, _ gateway.SendOpts) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return gateway.MessageRef{}, errors.New("send failed")
	}
	f.sends++
	return gateway.MessageRef{ChatID: chatID, MessageID: f.id()}, nil
}

func (f *fakeGateway) SendPart(_ context.Context, chatID int64, _ content.Part, _ string, _ gateway.SendOpts) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return gateway.MessageRef{}, errors.New("send failed")
	}
	f.sends++
	return gateway.MessageRef{ChatID: chatID, MessageID: f.id()}, nil
}

func (f *fakeGateway) SendAlbum(_ context.Context, chatID int64, parts []content.Part, _ string) ([]gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("send failed")
	}
	f.albums++
	refs := make([]gateway.MessageRef, len(parts))
	for i := range parts {
		refs[i] = gateway.MessageRef{ChatID: chatID, MessageID: f.id()}
	}
	return refs, nil
}

func (f *fakeGateway) EditText(context.Context, gateway.MessageRef, string, gateway.SendOpts) error {
	return nil
}

func photoSub(n int) *content.Submission {
	parts := make([]content.Part, n)
	for i := range parts {
		parts[i] = content.Part{Kind: content.KindPhoto, FileID: "f", Sequence: i}
	}
	return content.NewSubmission(42, "ann", parts)
}

func TestRegisterIndexesEveryReviewMessage(t *testing.T) {
	gw := &fakeGateway{}
	r := New(gw)
	sub := photoSub(3)

	refs, err := r.Register(context.Background(), sub, -100)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("want 3 refs, got %d", len(refs))
	}
	if gw.albums != 1 {
		t.Fatalf("multi-photo submission must go out as one album, albums=%d", gw.albums)
	}

	for _, ref := range refs {
		got, err := r.Resolve(ref.MessageID)
		if err != nil {
			t.Fatalf("resolve %d: %v", ref.MessageID, err)
		}
		if got != sub {
			t.Fatalf("resolve %d returned wrong submission", ref.MessageID)
		}
	}
	if r.Pending() != 1 {
		t.Fatalf("pending: got %d", r.Pending())
	}
}

func TestRegisterTextGoesAsSingleMessage(t *testing.T) {
	gw := &fakeGateway{}
	r := New(gw)
	sub := content.NewSubmission(42, "ann", []content.Part{{Kind: content.KindText, Text: "hi"}})

	refs, err := r.Register(context.Background(), sub, -100)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(refs) != 1 || gw.albums != 0 {
		t.Fatalf("single part must not become an album: refs=%d albums=%d", len(refs), gw.albums)
	}
}

func TestRegisterFailsWithoutGroup(t *testing.T) {
	r := New(&fakeGateway{})
	_, err := r.Register(context.Background(), photoSub(1), 0)
	if !errors.Is(err, content.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestRegisterDeliveryFailureRegistersNothing(t *testing.T) {
	gw := &fakeGateway{fail: true}
	r := New(gw)
	sub := photoSub(2)

	if _, err := r.Register(context.Background(), sub, -100); err == nil {
		t.Fatal("delivery failure must surface")
	}
	if r.Pending() != 0 {
		t.Fatal("failed registration must leave the registry empty")
	}
}

func TestResolveUnknownMessage(t *testing.T) {
	r := New(&fakeGateway{})
	if _, err := r.Resolve(999); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAttachIndexesStatusCard(t *testing.T) {
	gw := &fakeGateway{}
	r := New(gw)
	sub := photoSub(1)

	if _, err := r.Register(context.Background(), sub, -100); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Attach(sub, 777)

	got, err := r.Resolve(777)
	if err != nil || got != sub {
		t.Fatalf("attached card must resolve: %v", err)
	}
	if len(r.Refs(sub)) != 2 {
		t.Fatalf("refs: got %d, want 2", len(r.Refs(sub)))
	}
}

func TestConcurrentRegistrations(t *testing.T) {
	gw := &fakeGateway{}
	r := New(gw)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Register(context.Background(), photoSub(2), -100); err != nil {
				t.Errorf("register: %v", err)
			}
		}()
	}
	wg.Wait()

	if r.Pending() != 50 {
		t.Fatalf("pending: got %d, want 50", r.Pending())
	}
}
