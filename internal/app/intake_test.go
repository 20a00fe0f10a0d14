package app

import (
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/subgatebot/subgate/internal/aggregator"
	"github.com/subgatebot/subgate/internal/content"
)

func bundleFor(owner int64) aggregator.Bundle {
	return aggregator.Bundle{
		Owner:     owner,
		OwnerName: "user",
		Parts:     []content.Part{{Kind: content.KindText, Text: "hi", Sequence: 1}},
	}
}

func TestChoiceTableKeysByOwnerAndPrompt(t *testing.T) {
	choices := newChoiceTable()

	// Message ids are per-chat sequences: two private chats can easily
	// produce prompts with the same id.
	choices.put(111, 4, bundleFor(111))
	choices.put(222, 4, bundleFor(222))

	if got := choices.size(); got != 2 {
		t.Fatalf("both pending bundles must coexist, size = %d", got)
	}

	a, ok := choices.take(111, 4)
	if !ok || a.Owner != 111 {
		t.Fatalf("first submitter's bundle lost: ok=%v owner=%d", ok, a.Owner)
	}
	b, ok := choices.take(222, 4)
	if !ok || b.Owner != 222 {
		t.Fatalf("second submitter's bundle lost: ok=%v owner=%d", ok, b.Owner)
	}
}

func TestChoiceTableTakeIsOneShot(t *testing.T) {
	choices := newChoiceTable()
	choices.put(111, 9, bundleFor(111))

	if _, ok := choices.take(111, 9); !ok {
		t.Fatal("first take must find the bundle")
	}
	if _, ok := choices.take(111, 9); ok {
		t.Fatal("second take must find nothing")
	}
}

func TestChoiceTableEntriesExpire(t *testing.T) {
	choices := &choiceTable{cache: gocache.New(10*time.Millisecond, time.Millisecond)}
	choices.put(111, 9, bundleFor(111))

	time.Sleep(30 * time.Millisecond)

	if _, ok := choices.take(111, 9); ok {
		t.Fatal("abandoned prompt must expire")
	}
}
