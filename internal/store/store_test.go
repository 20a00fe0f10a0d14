package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	snap, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if snap.ReviewGroupID != 0 || len(snap.Blocked) != 0 {
		t.Fatalf("missing file must load empty, got %+v", snap)
	}

	snap.ReviewGroupID = -100123
	snap.ChannelID = -100456
	snap.ChannelName = "mychannel"
	snap.FooterEnabled = true
	snap.Emojis = []string{"📮", "💬"}
	snap.Blocked[42] = true
	snap.Warnings[42] = 2
	if err := fs.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ReviewGroupID != -100123 || got.ChannelName != "mychannel" {
		t.Fatalf("reload mismatch: %+v", got)
	}
	if !got.Blocked[42] || got.Warnings[42] != 2 {
		t.Fatalf("maps not persisted: %+v", got)
	}
	if len(got.Emojis) != 2 || got.Emojis[0] != "📮" {
		t.Fatalf("emojis not persisted: %+v", got.Emojis)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatal("corrupt file must not load silently")
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := Snapshot{
		Emojis:   []string{"a"},
		Blocked:  map[int64]bool{1: true},
		Warnings: map[int64]int{1: 1},
	}
	c := s.Clone()
	c.Emojis[0] = "b"
	c.Blocked[2] = true
	c.Warnings[1] = 9

	if s.Emojis[0] != "a" || s.Blocked[2] || s.Warnings[1] != 1 {
		t.Fatalf("clone aliases original: %+v", s)
	}
}

func TestRuntimeWriteThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	rt, err := NewRuntime(ctx, fs)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Update(ctx, func(s *Snapshot) {
		s.ReviewGroupID = -1
		s.Blocked[7] = true
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if rt.ReviewGroupID() != -1 || !rt.IsBlocked(7) {
		t.Fatalf("runtime view stale: %+v", rt.View())
	}

	// A fresh runtime over the same file sees the persisted change.
	rt2, err := NewRuntime(ctx, fs)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if rt2.ReviewGroupID() != -1 || !rt2.IsBlocked(7) {
		t.Fatalf("mutation not written through: %+v", rt2.View())
	}
}

type failingStore struct{ Snapshot }

func (f *failingStore) Load(context.Context) (Snapshot, error) { return f.Snapshot, nil }
func (f *failingStore) Save(context.Context, Snapshot) error {
	return errors.New("disk full")
}

func TestRuntimeKeepsMemoryOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx, &failingStore{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Update(ctx, func(s *Snapshot) { s.ChannelID = -5 }); err == nil {
		t.Fatal("save failure must surface")
	}
	if rt.ChannelID() != -5 {
		t.Fatal("in-memory document must keep the applied change")
	}
}
