package content

import (
	"errors"
	"sync"
	"testing"
)

func TestResolveFirstWins(t *testing.T) {
	sub := NewSubmission(1, "Ada", []Part{{Kind: KindText, Text: "hi"}})
	if sub.Status() != StatusPending {
		t.Fatalf("initial status = %v", sub.Status())
	}

	if err := sub.Resolve(StatusApproved, Decision{ReviewerID: 7, Note: "ok"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if sub.Status() != StatusApproved {
		t.Errorf("status = %v, want approved", sub.Status())
	}

	err := sub.Resolve(StatusRejected, Decision{ReviewerID: 8})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second resolve = %v, want ErrAlreadyResolved", err)
	}
	if d := sub.Decision(); d.ReviewerID != 7 || d.Note != "ok" {
		t.Errorf("losing resolve must not overwrite the decision: %+v", d)
	}
}

func TestResolveRejectsPendingTarget(t *testing.T) {
	sub := NewSubmission(1, "Ada", nil)
	if err := sub.Resolve(StatusPending, Decision{}); err == nil {
		t.Fatal("resolving to pending must fail")
	}
	if sub.Status() != StatusPending {
		t.Errorf("failed resolve must not change state, got %v", sub.Status())
	}
}

func TestResolveConcurrent(t *testing.T) {
	sub := NewSubmission(1, "Ada", nil)

	const racers = 16
	wins := make(chan Status, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		to := StatusApproved
		if i%2 == 1 {
			to = StatusRejected
		}
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			if err := sub.Resolve(to, Decision{}); err == nil {
				wins <- to
			}
		}(to)
	}
	wg.Wait()
	close(wins)

	var winners []Status
	for s := range wins {
		winners = append(winners, s)
	}
	if len(winners) != 1 {
		t.Fatalf("exactly one resolver must win, got %d", len(winners))
	}
	if sub.Status() != winners[0] {
		t.Errorf("status %v does not match winner %v", sub.Status(), winners[0])
	}
}

func TestKindAlbumable(t *testing.T) {
	for kind, want := range map[Kind]bool{
		KindPhoto:     true,
		KindVideo:     true,
		KindText:      false,
		KindAnimation: false,
		KindAudio:     false,
		KindVoice:     false,
		KindDocument:  false,
		KindSticker:   false,
	} {
		if got := kind.Albumable(); got != want {
			t.Errorf("%s.Albumable() = %v, want %v", kind, got, want)
		}
	}
}

func TestFirstSequence(t *testing.T) {
	sub := NewSubmission(1, "Ada", []Part{{Sequence: 41}, {Sequence: 42}})
	if got := sub.FirstSequence(); got != 41 {
		t.Errorf("first sequence = %d", got)
	}
	if got := NewSubmission(1, "Ada", nil).FirstSequence(); got != 0 {
		t.Errorf("empty submission sequence = %d", got)
	}
}
